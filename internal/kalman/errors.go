// internal/kalman/errors.go
package kalman

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular 혁신 공분산 S 역행렬 계산 실패 (또는 NaN 결과)
	ErrSingular = errors.New("kalman: singular innovation covariance")
	// ErrNotConfigured Configure/SetState 이전 호출
	ErrNotConfigured = errors.New("kalman: filter not configured")
)

// DimensionError 행렬 차원 불일치
type DimensionError struct {
	Name1, Name2 string
	R1, C1       int
	R2, C2       int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("kalman: dimensions must agree: %s(%dx%d) %s(%dx%d)",
		e.Name1, e.R1, e.C1, e.Name2, e.R2, e.C2)
}

// checkDims m 의 크기가 (rows, cols) 인지 확인
func checkDims(m mat.Matrix, name string, rows, cols int) error {
	r, c := m.Dims()
	if r != rows || c != cols {
		return &DimensionError{Name1: name, R1: r, C1: c, Name2: "expected", R2: rows, C2: cols}
	}
	return nil
}

// internal/kalman/filter.go
package kalman

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Filter 선형 칼만 필터. 부분(마스크) 업데이트를 지원한다.
// 컨트롤 루프 고루틴 전용이며 동시 접근을 고려하지 않는다.
type Filter struct {
	n int

	x *mat.VecDense
	p *mat.Dense

	f *mat.Dense
	q *mat.Dense
	h *mat.Dense
}

// NewFilter 상태 차원 n 인 필터 생성
func NewFilter(n int) *Filter {
	return &Filter{
		n: n,
		x: mat.NewVecDense(n, nil),
		p: identity(n),
	}
}

// Dim 상태 차원
func (kf *Filter) Dim() int { return kf.n }

// Configure 다음 predict/update 에 사용할 F, Q, H 교체
func (kf *Filter) Configure(F, Q, H mat.Matrix) error {
	if err := checkDims(F, "F", kf.n, kf.n); err != nil {
		return err
	}
	if err := checkDims(Q, "Q", kf.n, kf.n); err != nil {
		return err
	}
	if _, c := H.Dims(); c != kf.n {
		r, _ := H.Dims()
		return &DimensionError{Name1: "H", R1: r, C1: c, Name2: "x", R2: kf.n, C2: 1}
	}

	kf.f = mat.DenseCopyOf(F)
	kf.q = mat.DenseCopyOf(Q)
	kf.h = mat.DenseCopyOf(H)
	return nil
}

// SetState 초기 상태와 공분산 설정
func (kf *Filter) SetState(x mat.Vector, P mat.Matrix) error {
	if x.Len() != kf.n {
		return &DimensionError{Name1: "x", R1: x.Len(), C1: 1, Name2: "state", R2: kf.n, C2: 1}
	}
	if err := checkDims(P, "P", kf.n, kf.n); err != nil {
		return err
	}
	kf.x = mat.VecDenseCopyOf(x)
	kf.p = mat.DenseCopyOf(P)
	return nil
}

// Predict x ← F·x, P ← F·P·Fᵗ + Q
func (kf *Filter) Predict() error {
	if kf.f == nil {
		return ErrNotConfigured
	}

	var x mat.VecDense
	x.MulVec(kf.f, kf.x)

	var fp, p mat.Dense
	fp.Mul(kf.f, kf.p)
	p.Mul(&fp, kf.f.T())
	p.Add(&p, kf.q)

	kf.x = &x
	kf.p = &p
	return nil
}

// Update 전체 차원 보정
func (kf *Filter) Update(z mat.Vector, R mat.Matrix) error {
	if kf.h == nil {
		return ErrNotConfigured
	}
	m, _ := kf.h.Dims()
	if z.Len() != m {
		return &DimensionError{Name1: "z", R1: z.Len(), C1: 1, Name2: "H", R2: m, C2: kf.n}
	}
	if err := checkDims(R, "R", m, m); err != nil {
		return err
	}
	return kf.correct(z, R, kf.h)
}

// PartialUpdate mask[i] 가 true 인 측정 채널만으로 보정한다.
// 갱신된 채널이 하나도 없으면 상태를 건드리지 않는다.
func (kf *Filter) PartialUpdate(mask []bool, z mat.Vector, R mat.Matrix) error {
	if kf.h == nil {
		return ErrNotConfigured
	}
	m, _ := kf.h.Dims()
	if len(mask) != m || z.Len() != m {
		return &DimensionError{Name1: "mask", R1: len(mask), C1: 1, Name2: "H", R2: m, C2: kf.n}
	}
	if err := checkDims(R, "R", m, m); err != nil {
		return err
	}

	idx := make([]int, 0, m)
	for i, fresh := range mask {
		if fresh {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	k := len(idx)
	hr := mat.NewDense(k, kf.n, nil)
	rr := mat.NewDense(k, k, nil)
	zr := mat.NewVecDense(k, nil)
	for a, i := range idx {
		hr.SetRow(a, mat.Row(nil, i, kf.h))
		zr.SetVec(a, z.AtVec(i))
		for b, j := range idx {
			rr.Set(a, b, R.At(i, j))
		}
	}

	return kf.correct(zr, rr, hr)
}

// correct y = z − H·x, S = H·P·Hᵗ + R, K = P·Hᵗ·S⁻¹
func (kf *Filter) correct(z mat.Vector, R, H mat.Matrix) error {
	var hx, y mat.VecDense
	hx.MulVec(H, kf.x)
	y.SubVec(z, &hx)

	var pht, s mat.Dense
	pht.Mul(kf.p, H.T())
	s.Mul(H, &pht)
	s.Add(&s, R)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}

	var gain mat.Dense
	gain.Mul(&pht, &sInv)

	var ky, x mat.VecDense
	ky.MulVec(&gain, &y)
	x.AddVec(kf.x, &ky)

	var kh, khp, p mat.Dense
	kh.Mul(&gain, H)
	khp.Mul(&kh, kf.p)
	p.Sub(kf.p, &khp)

	if !finiteVec(&x) || !finiteMat(&p) {
		return fmt.Errorf("%w: non-finite corrected state", ErrSingular)
	}

	kf.x = &x
	kf.p = &p
	return nil
}

// Bypass 필터 비활성 시 상태 직접 대입 (공분산 유지)
func (kf *Filter) Bypass(x mat.Vector) error {
	if x.Len() != kf.n {
		return &DimensionError{Name1: "x", R1: x.Len(), C1: 1, Name2: "state", R2: kf.n, C2: 1}
	}
	kf.x = mat.VecDenseCopyOf(x)
	return nil
}

// State 상태 벡터 복사본
func (kf *Filter) State() *mat.VecDense {
	return mat.VecDenseCopyOf(kf.x)
}

// Covariance 공분산 복사본
func (kf *Filter) Covariance() *mat.Dense {
	return mat.DenseCopyOf(kf.p)
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Identity n×n 단위행렬
func Identity(n int) *mat.Dense { return identity(n) }

func finiteVec(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		if f := v.AtVec(i); math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func finiteMat(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if f := m.At(i, j); math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

// internal/telemetry/recorder.go - 항해 로그 (nav / state / meas 시계열)
package telemetry

import (
	"context"
	"errors"
	"time"

	"boat-navigator/internal/geo"
)

// Missing 갱신되지 않은 측정 채널 표기값
const Missing = -999

const (
	StateDim = 5
	MeasDim  = 7
)

// Session 항해 세션 시작 정보
type Session struct {
	ID         string
	VehicleID  string
	Start      time.Time
	AutoPilot  bool
	Waypoints  int
	ResumeFrom int
	Append     bool
}

// NavRecord pure pursuit 기하 정보
type NavRecord struct {
	Time      time.Time
	Pos       geo.Point
	Lwp       geo.Point
	Cwp       geo.Point
	Goal      geo.Point
	LookAhead float64
	TurnRate  float64
	Rudder    float64
}

// StateRecord 추정 상태와 예측 상태 [X, Y, V, phi, turn_rate]
type StateRecord struct {
	Time      time.Time
	State     [StateDim]float64
	Predicted [StateDim]float64
}

// MeasRecord 측정값. Fresh 가 false 인 채널은 이번 주기에 갱신되지 않음
type MeasRecord struct {
	Time   time.Time
	Values [MeasDim]float64
	Fresh  [MeasDim]bool
}

// Recorder 텔레메트리 싱크
type Recorder interface {
	Begin(ctx context.Context, s Session) error
	Nav(ctx context.Context, r NavRecord) error
	State(ctx context.Context, r StateRecord) error
	Meas(ctx context.Context, r MeasRecord) error
	Close() error
}

// Multi 여러 싱크로 동시에 기록
type Multi []Recorder

// Begin 모든 싱크 세션 시작
func (m Multi) Begin(ctx context.Context, s Session) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Begin(ctx, s))
	}
	return errors.Join(errs...)
}

// Nav 기하 기록
func (m Multi) Nav(ctx context.Context, rec NavRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Nav(ctx, rec))
	}
	return errors.Join(errs...)
}

// State 상태 기록
func (m Multi) State(ctx context.Context, rec StateRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.State(ctx, rec))
	}
	return errors.Join(errs...)
}

// Meas 측정 기록
func (m Multi) Meas(ctx context.Context, rec MeasRecord) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Meas(ctx, rec))
	}
	return errors.Join(errs...)
}

// Close 모든 싱크 종료
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// Discard 아무것도 기록하지 않는 싱크
type Discard struct{}

func (Discard) Begin(context.Context, Session) error     { return nil }
func (Discard) Nav(context.Context, NavRecord) error     { return nil }
func (Discard) State(context.Context, StateRecord) error { return nil }
func (Discard) Meas(context.Context, MeasRecord) error   { return nil }
func (Discard) Close() error                             { return nil }

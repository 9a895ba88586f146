package navigator

import (
	"context"
	"sync"
	"time"

	"boat-navigator/internal/config"
	"boat-navigator/internal/geo"
	"boat-navigator/internal/sensor"
	"boat-navigator/internal/telemetry"
)

type fakeParams struct {
	mu      sync.Mutex
	params  config.NavParams
	changed bool
	loadErr error
	ints    map[string]int
}

func newFakeParams(p *config.NavParams) *fakeParams {
	return &fakeParams{params: *p, ints: map[string]int{}}
}

func (f *fakeParams) Load() (*config.NavParams, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = false
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	p := f.params
	return &p, nil
}

func (f *fakeParams) Changed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changed
}

func (f *fakeParams) SetInt(key string, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ints[key] = value
	if key == resumeKey {
		f.params.ResumeFromWp = value
	}
	return nil
}

func (f *fakeParams) update(fn func(p *config.NavParams)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.params)
	f.changed = true
}

type recordingActuator struct {
	mu      sync.Mutex
	rudder  []int
	loads   []int
	starts  int
	stops   int
	failing error
}

func (a *recordingActuator) SetRudderAngle(deg int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rudder = append(a.rudder, deg)
	return a.failing
}

func (a *recordingActuator) SetMotorLoad(pct int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loads = append(a.loads, pct)
	return a.failing
}

func (a *recordingActuator) StartMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts++
	return a.failing
}

func (a *recordingActuator) StopMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	return a.failing
}

type memRecorder struct {
	telemetry.Discard
	sessions []telemetry.Session
	states   []telemetry.StateRecord
	meas     []telemetry.MeasRecord
	closed   int
}

func (m *memRecorder) Begin(_ context.Context, s telemetry.Session) error {
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memRecorder) State(_ context.Context, r telemetry.StateRecord) error {
	m.states = append(m.states, r)
	return nil
}

func (m *memRecorder) Meas(_ context.Context, r telemetry.MeasRecord) error {
	m.meas = append(m.meas, r)
	return nil
}

func (m *memRecorder) Close() error {
	m.closed++
	return nil
}

type staticIDs struct{}

func (staticIDs) GenerateUniqueID() string { return "session-test" }

type harness struct {
	nav      *Navigator
	params   *fakeParams
	sensors  *sensor.Buffer
	actuator *recordingActuator
	recorder *memRecorder
	start    time.Time
}

func testParams() *config.NavParams {
	p := config.DefaultNavParams()
	p.Compass = false
	p.GPSBearing = false
	p.GPSVel = false
	return p
}

func newHarness(p *config.NavParams) *harness {
	h := &harness{
		params:   newFakeParams(p),
		sensors:  sensor.NewBuffer(),
		actuator: &recordingActuator{},
		recorder: &memRecorder{},
		start:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	h.nav = New(Deps{
		Params:    h.params,
		Sensors:   h.sensors,
		Actuator:  h.actuator,
		Recorder:  h.recorder,
		IDs:       staticIDs{},
		VehicleID: "BOAT-T",
	})
	return h
}

// fixAt 현재 시각보다 앞선 fix 를 넣어 초기 위치로 쓴다
func (h *harness) fixAt(x, y float64) {
	h.sensors.PositionUpdate(x, y, h.start, 3)
}

func line(n int, spacing float64) []geo.Point {
	pts := make([]geo.Point, n)
	for i := range pts {
		pts[i] = geo.Point{X: 0, Y: spacing * float64(i+1)}
	}
	return pts
}

package control

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"boat-navigator/internal/command"
	"boat-navigator/internal/common/constants"
	"boat-navigator/internal/config"
	"boat-navigator/internal/geo"
	"boat-navigator/internal/models"
	"boat-navigator/internal/navigator"
	"boat-navigator/internal/sensor"
	"boat-navigator/internal/telemetry"
	"boat-navigator/internal/waypoint"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// virtualClock After 호출 즉시 시간을 전진시키고 채널을 닫지 않은 채 값을 넣는다
type virtualClock struct {
	mu     sync.Mutex
	now    time.Time
	afters int
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afters++
	if d > 0 {
		c.now = c.now.Add(d)
	}
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *virtualClock) afterCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.afters
}

type countingActuator struct {
	mu     sync.Mutex
	rudder []int
	loads  []int
	starts int
	stops  int
}

func (a *countingActuator) SetRudderAngle(deg int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rudder = append(a.rudder, deg)
	return nil
}

func (a *countingActuator) SetMotorLoad(pct int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loads = append(a.loads, pct)
	return nil
}

func (a *countingActuator) StartMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts++
	return nil
}

func (a *countingActuator) StopMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	return nil
}

func (a *countingActuator) stopCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stops
}

type recordingSink struct {
	mu       sync.Mutex
	statuses []models.Status
}

func (s *recordingSink) PublishStatus(_ context.Context, st models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
	return nil
}

func (s *recordingSink) all() []models.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Status(nil), s.statuses...)
}

// triggerSink 진행률이 at 이상이 된 첫 RUN 상태에서 fire 를 한 번 호출한다
type triggerSink struct {
	recordingSink
	at    float64
	once  sync.Once
	fire  func(st models.Status)
	fired chan float64
}

func newTriggerSink(at float64, fire func(st models.Status)) *triggerSink {
	return &triggerSink{at: at, fire: fire, fired: make(chan float64, 1)}
}

func (s *triggerSink) PublishStatus(ctx context.Context, st models.Status) error {
	_ = s.recordingSink.PublishStatus(ctx, st)
	if st.Phase == constants.PhaseRun && st.ProgressPercent >= s.at {
		s.once.Do(func() {
			s.fire(st)
			s.fired <- st.ProgressPercent
		})
	}
	return nil
}

type fixture struct {
	loop     *Loop
	clock    *virtualClock
	actuator *countingActuator
	sink     *recordingSink
	sensors  *sensor.Buffer
	params   *config.ParamStore
	store    *waypoint.Store
	origin   geo.Point
}

func newFixture(t *testing.T, statusEvery int) *fixture {
	t.Helper()
	dir := t.TempDir()

	p := config.DefaultNavParams()
	p.Compass = false
	p.GPSBearing = false
	p.GPSVel = false
	paramPath := filepath.Join(dir, "settings.rf")
	require.NoError(t, godotenv.Write(p.Values(), paramPath))

	f := &fixture{
		clock:    &virtualClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		actuator: &countingActuator{},
		sink:     &recordingSink{},
		sensors:  sensor.NewBuffer(),
		params:   config.NewParamStore(paramPath),
		store:    waypoint.NewStore(filepath.Join(dir, "waypoints.txt")),
		origin:   geo.ToLocal(18.07, 59.33),
	}
	f.sensors.PositionUpdate(f.origin.X, f.origin.Y, f.clock.Now(), 3)

	nav := navigator.New(navigator.Deps{
		Params:    f.params,
		Sensors:   f.sensors,
		Actuator:  f.actuator,
		Recorder:  telemetry.Discard{},
		VehicleID: "BOAT-T",
	})
	f.loop = NewLoop(nav, f.actuator, f.store, f.clock, Options{
		StatusEvery:  statusEvery,
		WaypointPoll: 100 * time.Millisecond,
	}, f.sink)
	return f
}

func (f *fixture) submit(t *testing.T, raw string) {
	t.Helper()
	cmd, err := command.Parse(raw)
	require.NoError(t, err)
	require.NoError(t, f.loop.Submit(cmd))
}

// queue 루프 고루틴(상태 싱크 콜백)에서 명령 제출
func (f *fixture) queue(raw string) {
	if cmd, err := command.Parse(raw); err == nil {
		_ = f.loop.Submit(cmd)
	}
}

// north 원점에서 북쪽으로 dist 미터 떨어진 지점의 "lon,lat"
func (f *fixture) north(dist float64) string {
	lon, lat := geo.ToWGS84(geo.Point{X: f.origin.X, Y: f.origin.Y + dist})
	return fmt.Sprintf("%.9f,%.9f", lon, lat)
}

func (f *fixture) start(t *testing.T) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestLoopInteractiveRoute(t *testing.T) {
	f := newFixture(t, 1)

	f.submit(t, "SET_LOAD;80")
	f.submit(t, "ADD_WAYPOINT;"+f.north(20))
	f.submit(t, "ACTIVATE")
	cancel, done := f.start(t)

	require.Eventually(t, func() bool { return f.actuator.stopCount() == 1 }, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return f.loop.Phase() == constants.PhaseWaitForWaypoints }, time.Second, time.Millisecond)

	statuses := f.sink.all()
	require.NotEmpty(t, statuses)
	for _, st := range statuses {
		assert.Equal(t, constants.PhaseRun, st.Phase)
		assert.True(t, st.Active)
		assert.False(t, st.AutoPilot)
	}
	last := statuses[len(statuses)-1]
	end := geo.ToLocal(last.Lon, last.Lat)
	assert.GreaterOrEqual(t, end.Y-f.origin.Y, 10.0, "boat stopped within tolerance of the waypoint")

	f.submit(t, "SHUTDOWN")
	require.Eventually(t, func() bool { return f.loop.Phase() == constants.PhaseTerminated }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLoopAutopilotFromFile(t *testing.T) {
	f := newFixture(t, 0)

	route := []geo.Point{
		{X: f.origin.X, Y: f.origin.Y + 15},
		{X: f.origin.X, Y: f.origin.Y + 30},
		{X: f.origin.X, Y: f.origin.Y + 45},
	}
	require.NoError(t, f.store.WriteSurvey(route))

	f.submit(t, "AUTOPILOT")
	f.submit(t, "ACTIVATE")
	cancel, done := f.start(t)

	require.Eventually(t, func() bool { return f.actuator.stopCount() == 1 }, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !f.loop.AutoPilot() }, time.Second, time.Millisecond,
		"teardown clears autopilot")

	saved, err := f.params.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, saved.ResumeFromWp, "finished route resets resume index")

	f.actuator.mu.Lock()
	assert.Equal(t, 1, f.actuator.starts)
	assert.Contains(t, f.actuator.loads, navigator.CruiseLoad)
	f.actuator.mu.Unlock()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLoopDeactivateMidRoute(t *testing.T) {
	f := newFixture(t, 1)

	f.submit(t, "SET_LOAD;80")
	f.submit(t, "ADD_WP;"+f.north(20000))
	f.submit(t, "ACTIVATE")
	cancel, done := f.start(t)

	require.Eventually(t, func() bool { return len(f.sink.all()) >= 5 }, 5*time.Second, time.Millisecond)
	f.submit(t, "DEACTIVATE")

	require.Eventually(t, func() bool { return f.actuator.stopCount() == 1 }, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return f.loop.Phase() == constants.PhaseWaitForWaypoints }, time.Second, time.Millisecond)
	assert.False(t, f.loop.Active())

	f.submit(t, "GET_STATUS")
	require.Eventually(t, func() bool {
		all := f.sink.all()
		return all[len(all)-1].Phase == constants.PhaseWaitForWaypoints
	}, time.Second, time.Millisecond)
	st := f.loop.LastStatus()
	assert.False(t, st.Active)
	assert.Nil(t, st.CwpLon, "path cleared on teardown")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLoopShutdownAndOperate(t *testing.T) {
	f := newFixture(t, 0)
	cancel, done := f.start(t)

	// 웨이포인트 대기 중에도 종료 요청을 받는다
	f.submit(t, "SHUTDOWN")
	require.Eventually(t, func() bool { return f.loop.Phase() == constants.PhaseTerminated }, time.Second, time.Millisecond)
	assert.False(t, f.loop.Operative())

	f.submit(t, "ACTIVATE")
	f.submit(t, "OPERATE")
	require.Eventually(t, func() bool { return f.loop.Phase() == constants.PhaseWaitForWaypoints }, time.Second, time.Millisecond)
	assert.True(t, f.loop.Operative())
	assert.False(t, f.loop.Active(), "commands other than OPERATE are ignored while terminated")

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLoopManualOverrides(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	for _, raw := range []string{"SET_RUDDER;-15", "START_MOTOR", "STOP_MOTOR"} {
		cmd, err := command.Parse(raw)
		require.NoError(t, err)
		f.loop.dispatch(ctx, cmd)
	}

	assert.Equal(t, []int{-15}, f.actuator.rudder)
	assert.Equal(t, []int{command.StartMotorLoad, 0}, f.actuator.loads)
	assert.Equal(t, 1, f.actuator.starts)
	assert.Equal(t, 1, f.actuator.stops)
}

func TestLoopSurveyCancelsAutopilot(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.loop.autopilot.Store(true)

	cmd, err := command.Parse("ADD_SURVEY;" + f.north(10) + " " + f.north(20))
	require.NoError(t, err)
	f.loop.dispatch(ctx, cmd)

	assert.False(t, f.loop.AutoPilot())
	assert.Equal(t, 2, f.loop.nav.PathLen())

	saved, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.InDelta(t, f.origin.Y+20, saved[1].Y, 1e-3)
}

func TestSubmitQueueFull(t *testing.T) {
	f := newFixture(t, 0)
	f.loop = NewLoop(f.loop.nav, f.actuator, f.store, f.clock, Options{QueueSize: 1})

	require.NoError(t, f.loop.Submit(command.Command{Type: command.GetStatus}))
	err := f.loop.Submit(command.Command{Type: command.GetStatus})
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestSleepUntilPastDeadline(t *testing.T) {
	f := newFixture(t, 0)

	require.NoError(t, f.loop.sleepUntil(context.Background(), f.clock.Now().Add(-time.Second)))
	assert.Equal(t, 0, f.clock.afterCalls(), "past deadline proceeds without waiting")

	require.NoError(t, f.loop.sleepUntil(context.Background(), f.clock.Now().Add(time.Second)))
	assert.Equal(t, 1, f.clock.afterCalls())
}

func TestLoopResumeFollowsModeSwitch(t *testing.T) {
	route := func(f *fixture) []geo.Point {
		points := make([]geo.Point, 10)
		for i := range points {
			points[i] = geo.Point{X: f.origin.X, Y: f.origin.Y + 15*float64(i+1)}
		}
		return points
	}

	t.Run("autopilot cancelled mid-route keeps saved index", func(t *testing.T) {
		f := newFixture(t, 1)
		require.NoError(t, f.store.WriteSurvey(route(f)))

		sink := newTriggerSink(30, func(models.Status) {
			f.queue("ADD_WAYPOINT;" + f.north(500))
			f.queue("DEACTIVATE")
		})
		f.loop = NewLoop(f.loop.nav, f.actuator, f.store, f.clock, Options{
			StatusEvery:  1,
			WaypointPoll: 100 * time.Millisecond,
		}, sink)

		f.submit(t, "AUTOPILOT")
		f.submit(t, "ACTIVATE")
		cancel, done := f.start(t)

		select {
		case progress := <-sink.fired:
			assert.Less(t, progress, 100.0)
		case <-time.After(5 * time.Second):
			t.Fatal("route never reached 30%")
		}
		require.Eventually(t, func() bool { return f.actuator.stopCount() == 1 }, 5*time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return f.loop.Phase() == constants.PhaseWaitForWaypoints }, time.Second, time.Millisecond)

		saved, err := f.params.Load()
		require.NoError(t, err)
		assert.Equal(t, 0, saved.ResumeFromWp, "interactive session does not persist a resume index")

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("autopilot enabled mid-route saves index", func(t *testing.T) {
		f := newFixture(t, 1)
		positions := make([]string, 0, 10)
		for _, p := range route(f) {
			positions = append(positions, f.north(p.Y-f.origin.Y))
		}

		sink := newTriggerSink(30, func(models.Status) {
			f.queue("AUTOPILOT")
			f.queue("DEACTIVATE")
		})
		f.loop = NewLoop(f.loop.nav, f.actuator, f.store, f.clock, Options{
			StatusEvery:  1,
			WaypointPoll: 100 * time.Millisecond,
		}, sink)

		f.submit(t, "SET_LOAD;80")
		f.submit(t, "ADD_WAYPOINT;"+strings.Join(positions, " "))
		f.submit(t, "ACTIVATE")
		cancel, done := f.start(t)

		select {
		case <-sink.fired:
		case <-time.After(5 * time.Second):
			t.Fatal("route never reached 30%")
		}
		require.Eventually(t, func() bool { return f.actuator.stopCount() == 1 }, 5*time.Second, time.Millisecond)
		require.Eventually(t, func() bool { return f.loop.Phase() == constants.PhaseWaitForWaypoints }, time.Second, time.Millisecond)

		saved, err := f.params.Load()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, saved.ResumeFromWp, 3)
		assert.Less(t, saved.ResumeFromWp, 9)
		assert.False(t, f.loop.AutoPilot(), "teardown clears autopilot")

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

package navigator

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"boat-navigator/internal/config"
	"boat-navigator/internal/geo"
	"boat-navigator/internal/sensor"
	"boat-navigator/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitNavigationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty path", func(t *testing.T) {
		h := newHarness(testParams())
		assert.ErrorIs(t, h.nav.InitNavigation(ctx, h.start, false), ErrEmptyPath)
	})

	t.Run("no position fix", func(t *testing.T) {
		h := newHarness(testParams())
		h.nav.SetPath(line(2, 10))
		assert.ErrorIs(t, h.nav.InitNavigation(ctx, h.start, false), ErrNoPositionFix)
	})

	t.Run("param load failure", func(t *testing.T) {
		h := newHarness(testParams())
		h.fixAt(0, 0)
		h.nav.SetPath(line(2, 10))
		h.params.loadErr = config.ErrMissingParam
		assert.ErrorIs(t, h.nav.InitNavigation(ctx, h.start, false), config.ErrMissingParam)
	})

	t.Run("simulated start at first waypoint", func(t *testing.T) {
		p := testParams()
		p.SimulateGPS = true
		h := newHarness(p)
		h.nav.SetPath(line(2, 10))
		require.NoError(t, h.nav.InitNavigation(ctx, h.start, false))
		assert.Equal(t, geo.Point{X: 0, Y: 10}, h.nav.Pos())
	})
}

func TestEndToEndSingleWaypoint(t *testing.T) {
	ctx := context.Background()
	h := newHarness(testParams())
	h.fixAt(0, 0)
	h.nav.SetPath([]geo.Point{{X: 0, Y: 20}})
	h.nav.SetLoad(80)

	require.NoError(t, h.nav.InitNavigation(ctx, h.start, true))
	assert.Equal(t, 0.0, h.nav.Phi())
	assert.InDelta(t, math.Cbrt(80/3.14), h.nav.V(), 1e-9)

	reached := false
	for i := 0; i < 100; i++ {
		if h.nav.ReachedWP() {
			reached = true
			break
		}
		assert.Less(t, h.nav.Pos().Y, 10.0)
		h.nav.AdvanceTime()
		require.NoError(t, h.nav.Cycle(ctx))
		assert.InDelta(t, 0, h.nav.Pos().X, 1e-9)
		assert.InDelta(t, 0, h.nav.rudder, 1e-9)
	}
	require.True(t, reached)
	assert.GreaterOrEqual(t, h.nav.Pos().Y, 10.0)
	assert.False(t, h.nav.NextWP(), "path exhausted")

	require.NoError(t, h.nav.Teardown())
	assert.Equal(t, 1, h.actuator.starts)
	assert.Equal(t, 1, h.actuator.stops)
	assert.Equal(t, 0, h.params.ints[resumeKey], "completed path resets resume index")
	assert.Equal(t, 0, h.nav.PathLen())
	assert.False(t, h.nav.Status().AutoPilot)
	assert.Equal(t, 1, h.recorder.closed)

	require.NotEmpty(t, h.recorder.states)
	last := h.recorder.states[len(h.recorder.states)-1]
	assert.GreaterOrEqual(t, last.State[StateY], 10.0)

	// 엔코더 채널은 매 주기 갱신, GPS 는 새 fix 가 없으므로 -999 대상
	for _, m := range h.recorder.meas {
		assert.False(t, m.Fresh[MeasXGPS])
		assert.True(t, m.Fresh[MeasVLoad])
		assert.True(t, m.Fresh[MeasTurnRateRudder])
	}
	assert.Greater(t, h.nav.nsteps, 1)
}

func writeParams(t *testing.T, path string, p *config.NavParams) {
	t.Helper()
	require.NoError(t, godotenv.Write(p.Values(), path))
}

func TestResumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.rf")
	writeParams(t, path, testParams())
	store := config.NewParamStore(path)

	buf := sensor.NewBuffer()
	act := &recordingActuator{}
	nav := New(Deps{Params: store, Sensors: buf, Actuator: act, Recorder: telemetry.Discard{}})
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	buf.PositionUpdate(0, 0, start, 3)

	route := line(10, 100)

	// 자동항법으로 웨이포인트 3 까지 진행 후 비활성화
	nav.SetPath(route)
	require.NoError(t, nav.InitNavigation(ctx, start, true))
	for i := 0; i < 3; i++ {
		require.True(t, nav.NextWP())
	}
	require.NoError(t, nav.Teardown())

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, saved.ResumeFromWp)

	t.Run("autopilot resumes from saved waypoint", func(t *testing.T) {
		nav.SetPath(route)
		require.NoError(t, nav.InitNavigation(ctx, start, true))
		cwp, ok := nav.Current()
		require.True(t, ok)
		assert.Equal(t, route[3], cwp)
		assert.Equal(t, 3, nav.ResumeIndex())
		assert.InDelta(t, 100.0/3, nav.Progress(), 1e-9)
		require.NoError(t, nav.Teardown())
	})

	t.Run("manual run starts from first waypoint", func(t *testing.T) {
		nav.SetPath(route)
		require.NoError(t, nav.InitNavigation(ctx, start, false))
		cwp, _ := nav.Current()
		assert.Equal(t, route[0], cwp)
		assert.Equal(t, 0, nav.ResumeIndex())
		require.NoError(t, nav.Teardown())

		// 수동 모드에서는 저장값을 건드리지 않는다
		p, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, 3, p.ResumeFromWp)
	})

	t.Run("resume index at last waypoint is ignored", func(t *testing.T) {
		require.NoError(t, store.SetInt(resumeKey, 9))
		nav.SetPath(route)
		require.NoError(t, nav.InitNavigation(ctx, start, true))
		cwp, _ := nav.Current()
		assert.Equal(t, route[0], cwp)
		require.NoError(t, nav.Teardown())
	})
}

func TestCycleFilterDisabled(t *testing.T) {
	ctx := context.Background()
	p := testParams()
	p.Filter = false
	h := newHarness(p)
	h.fixAt(0, 0)
	h.nav.SetPath([]geo.Point{{X: 0, Y: 200}})
	require.NoError(t, h.nav.InitNavigation(ctx, h.start, false))

	next := h.nav.AdvanceTime()
	h.sensors.PositionUpdate(1.5, 4, next, 3)
	require.NoError(t, h.nav.Cycle(ctx))

	assert.Equal(t, geo.Point{X: 1.5, Y: 4}, h.nav.Pos())
	assert.Equal(t, 1, h.nav.nsteps)
}

func TestCycleHotReload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(testParams())
	h.fixAt(0, 0)
	h.nav.SetPath([]geo.Point{{X: 0, Y: 200}})
	require.NoError(t, h.nav.InitNavigation(ctx, h.start, false))

	h.params.update(func(p *config.NavParams) { p.Tolerance = 42 })
	h.nav.AdvanceTime()
	require.NoError(t, h.nav.Cycle(ctx))
	assert.Equal(t, 42.0, h.nav.params.Tolerance)

	// 잘못된 파일은 무시하고 기존 값 유지
	h.params.update(func(p *config.NavParams) {})
	h.params.loadErr = errors.New("broken file")
	h.nav.AdvanceTime()
	require.NoError(t, h.nav.Cycle(ctx))
	assert.Equal(t, 42.0, h.nav.params.Tolerance)
}

func TestCycleUpdatesK(t *testing.T) {
	ctx := context.Background()
	p := testParams()
	p.UpdateK = true
	h := newHarness(p)
	h.fixAt(0, 0)
	h.nav.SetPath([]geo.Point{{X: 0, Y: 200}})
	h.nav.SetLoad(50)
	require.NoError(t, h.nav.InitNavigation(ctx, h.start, false))

	h.nav.AdvanceTime()
	require.NoError(t, h.nav.Cycle(ctx))
	v := h.nav.V()
	require.Greater(t, v, 0.5)
	assert.InDelta(t, 50/(v*v*v), h.nav.k, 1e-9)
}

func TestActuatorFailuresAreSkipped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(testParams())
	h.actuator.failing = errors.New("servo offline")
	h.fixAt(0, 0)
	h.nav.SetPath([]geo.Point{{X: 0, Y: 200}})

	require.NoError(t, h.nav.InitNavigation(ctx, h.start, true))
	h.nav.AdvanceTime()
	require.NoError(t, h.nav.Cycle(ctx))
	assert.Error(t, h.nav.Teardown())
	assert.Len(t, h.actuator.rudder, 2)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(testParams())
	origin := geo.ToLocal(18.07, 59.33)
	h.sensors.PositionUpdate(origin.X, origin.Y, h.start, 3)
	h.sensors.HeadingUpdate(-math.Pi/2, h.start)
	h.nav.SetPath([]geo.Point{origin.Add(geo.Point{X: -100})})
	require.NoError(t, h.nav.InitNavigation(ctx, h.start, true))

	st := h.nav.Status()
	assert.InDelta(t, 18.07, st.Lon, 1e-6)
	assert.InDelta(t, 59.33, st.Lat, 1e-6)
	assert.InDelta(t, 270, st.Bearing, 1e-9)
	assert.True(t, st.AutoPilot)
	assert.Equal(t, "BOAT-T", st.VehicleID)
	require.NotNil(t, st.CwpLon)
	assert.Less(t, *st.CwpLon, 18.07)
	assert.Equal(t, "session-test", h.recorder.sessions[0].ID)
}

func TestLateReadingFusedOnce(t *testing.T) {
	ctx := context.Background()
	p := testParams()
	p.Compass = true
	h := newHarness(p)
	h.fixAt(0, 0)
	h.nav.SetPath([]geo.Point{{X: 0, Y: 200}})
	require.NoError(t, h.nav.InitNavigation(ctx, h.start, false))

	// 마감 직후에 찍힌 측정을 늦게 깬 루프가 읽는 경우
	next := h.nav.AdvanceTime()
	late := next.Add(20 * time.Millisecond)
	h.sensors.PositionUpdate(0.5, 1, late, 3)
	h.sensors.HeadingUpdate(0.01, late)
	require.NoError(t, h.nav.Cycle(ctx))

	require.Len(t, h.recorder.meas, 1)
	first := h.recorder.meas[0].Fresh
	assert.True(t, first[MeasXGPS])
	assert.True(t, first[MeasYGPS])
	assert.True(t, first[MeasPhiCompass])
	assert.Equal(t, 1, h.nav.nsteps)

	h.nav.AdvanceTime()
	require.NoError(t, h.nav.Cycle(ctx))

	require.Len(t, h.recorder.meas, 2)
	second := h.recorder.meas[1].Fresh
	assert.False(t, second[MeasXGPS], "same fix is not fused twice")
	assert.False(t, second[MeasYGPS])
	assert.False(t, second[MeasPhiCompass], "same heading is not fused twice")
	assert.True(t, second[MeasVLoad])
	assert.Equal(t, 2, h.nav.nsteps)

	// 새 측정은 다시 fresh
	next = h.nav.AdvanceTime()
	h.sensors.PositionUpdate(1, 3, next, 3)
	require.NoError(t, h.nav.Cycle(ctx))
	assert.True(t, h.recorder.meas[2].Fresh[MeasXGPS])
	assert.Equal(t, 1, h.nav.nsteps)
}

func TestCycleSingularInnovationBypasses(t *testing.T) {
	ctx := context.Background()
	p := testParams()
	p.Compass = true
	p.SigmaPhiGPS = 0
	p.SigmaPhiCompass = 0
	h := newHarness(p)
	h.fixAt(0, 0)
	h.nav.SetPath([]geo.Point{{X: 0, Y: 200}})
	require.NoError(t, h.nav.InitNavigation(ctx, h.start, false))

	// 잡음 없는 두 방위 채널이 같은 상태를 관측하면 S 는 특이
	next := h.nav.AdvanceTime()
	h.sensors.HeadingUpdate(0.3, next)
	h.nav.meas[MeasPhiGPS] = 0.3
	h.nav.stamps[MeasPhiGPS] = next

	require.NoError(t, h.nav.Cycle(ctx))
	assert.InDelta(t, 0.3, h.nav.Phi(), 1e-12, "heading taken directly from the measurement")
	require.Len(t, h.recorder.states, 1)
	state := h.recorder.states[0].State
	assert.InDelta(t, 0.3, state[StatePhi], 1e-12)
}

// internal/control/loop.go - 항해 컨트롤 루프 (단계 상태 머신)
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"boat-navigator/internal/command"
	"boat-navigator/internal/common/constants"
	"boat-navigator/internal/geo"
	"boat-navigator/internal/interfaces"
	"boat-navigator/internal/models"
	"boat-navigator/internal/navigator"
	"boat-navigator/internal/utils"
	"boat-navigator/internal/waypoint"

	"github.com/looplab/fsm"
)

// ErrQueueFull 명령 큐가 가득 참
var ErrQueueFull = errors.New("control: command queue full")

// 단계 전이 이벤트
const (
	eventWaypointsReady  = "waypoints_ready"
	eventNavigationReady = "navigation_ready"
	eventNavigationAbort = "navigation_aborted"
	eventPathFinished    = "path_finished"
	eventShutdown        = "shutdown"
	eventOperate         = "operate"
)

// WaypointSource 자동항법 경로 파일 (waypoint.Store)
type WaypointSource interface {
	Load() ([]geo.Point, error)
	WriteSurvey(points []geo.Point) error
}

// StatusSink 상태 스냅샷 수신자 (MQTT, Redis, WebSocket)
type StatusSink interface {
	PublishStatus(ctx context.Context, status models.Status) error
}

// Options 루프 설정
type Options struct {
	StatusEvery  int           // N 주기마다 상태 발행, 0 이면 GET_STATUS 때만
	WaypointPoll time.Duration // 자동항법 경로 파일 재확인 주기
	QueueSize    int
	Heartbeat    time.Duration // 변화 없는 주기 상태의 재전송 간격
	AutoPilot    bool          // 시작 모드
}

// Loop 컨트롤 루프. 필터와 경로는 Run 고루틴만 건드린다
type Loop struct {
	nav       *navigator.Navigator
	actuator  interfaces.Actuator
	waypoints WaypointSource
	sinks     []StatusSink
	clock     Clock
	opts      Options

	FSM      *fsm.FSM
	commands chan command.Command

	active    atomic.Bool
	autopilot atomic.Bool
	operative atomic.Bool

	gate   *utils.StatusCache
	cycles int

	mu   sync.RWMutex
	last models.Status
}

// NewLoop 새 컨트롤 루프 생성
func NewLoop(nav *navigator.Navigator, actuator interfaces.Actuator, waypoints WaypointSource, clock Clock, opts Options, sinks ...StatusSink) *Loop {
	utils.Logger.Infof("🏗️ CREATING Control Loop")

	if clock == nil {
		clock = SystemClock()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.WaypointPoll <= 0 {
		opts.WaypointPoll = time.Second
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 10 * time.Second
	}

	l := &Loop{
		nav:       nav,
		actuator:  actuator,
		waypoints: waypoints,
		sinks:     sinks,
		clock:     clock,
		opts:      opts,
		commands:  make(chan command.Command, opts.QueueSize),
		gate:      utils.NewStatusCache(opts.Heartbeat),
	}
	l.operative.Store(true)
	l.autopilot.Store(opts.AutoPilot)
	l.initializeFSM()

	utils.Logger.Infof("✅ Control Loop CREATED")
	return l
}

func (l *Loop) initializeFSM() {
	l.FSM = fsm.NewFSM(
		constants.PhaseWaitForWaypoints,
		fsm.Events{
			{Name: eventWaypointsReady, Src: []string{constants.PhaseWaitForWaypoints}, Dst: constants.PhaseInitNavigation},
			{Name: eventNavigationReady, Src: []string{constants.PhaseInitNavigation}, Dst: constants.PhaseRun},
			{Name: eventNavigationAbort, Src: []string{constants.PhaseInitNavigation}, Dst: constants.PhaseWaitForWaypoints},
			{Name: eventPathFinished, Src: []string{constants.PhaseRun}, Dst: constants.PhaseWaitForWaypoints},
			{Name: eventShutdown, Src: []string{constants.PhaseWaitForWaypoints, constants.PhaseInitNavigation, constants.PhaseRun}, Dst: constants.PhaseTerminated},
			{Name: eventOperate, Src: []string{constants.PhaseTerminated}, Dst: constants.PhaseWaitForWaypoints},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				utils.Logger.Infof("🚦 NAVIGATION PHASE: %s -> %s (Event: %s)", e.Src, e.Dst, e.Event)
			},
		},
	)
}

// Phase 현재 단계
func (l *Loop) Phase() string { return l.FSM.Current() }

// Active 활성 여부
func (l *Loop) Active() bool { return l.active.Load() }

// AutoPilot 자동항법 여부
func (l *Loop) AutoPilot() bool { return l.autopilot.Load() }

// Operative 루프 동작 여부
func (l *Loop) Operative() bool { return l.operative.Load() }

// Submit 명령을 큐에 넣는다. 블록하지 않는다
func (l *Loop) Submit(cmd command.Command) error {
	select {
	case l.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// LastStatus 마지막으로 발행한 상태
func (l *Loop) LastStatus() models.Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// Run ctx 가 끝날 때까지 루프 실행. SHUTDOWN 후에는 OPERATE 를 기다린다
func (l *Loop) Run(ctx context.Context) error {
	utils.Logger.Infof("🚀 CONTROL LOOP STARTED")
	defer utils.Logger.Infof("🏁 CONTROL LOOP STOPPED")

	for {
		if err := l.runSession(ctx); err != nil {
			return err
		}
		l.event(ctx, eventShutdown)
		l.publishStatus(ctx, false)

		if err := l.awaitOperate(ctx); err != nil {
			return err
		}
		// 재시작 후 첫 주기 상태는 게이트 없이 발행
		l.gate.Remove(l.LastStatus().VehicleID)
		l.event(ctx, eventOperate)
	}
}

// runSession operative 인 동안 WAIT → INIT → RUN 반복
func (l *Loop) runSession(ctx context.Context) error {
	for l.operative.Load() {
		ready, err := l.waitForWaypoints(ctx)
		if err != nil {
			return err
		}
		if !ready {
			continue
		}
		l.event(ctx, eventWaypointsReady)

		started, err := l.initNavigation(ctx)
		if err != nil {
			return err
		}
		if !started {
			l.event(ctx, eventNavigationAbort)
			continue
		}
		l.event(ctx, eventNavigationReady)

		if err := l.run(ctx); err != nil {
			return err
		}
		if l.operative.Load() {
			l.event(ctx, eventPathFinished)
		}
	}
	return nil
}

func (l *Loop) event(ctx context.Context, name string) {
	if err := l.FSM.Event(ctx, name); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			utils.Logger.Warnf("⚠️ PHASE EVENT %s REJECTED: %v", name, err)
		}
	}
}

// waitForWaypoints 활성화되고 경로가 준비될 때까지 대기. 종료 요청이면 false
func (l *Loop) waitForWaypoints(ctx context.Context) (bool, error) {
	for l.operative.Load() {
		var poll <-chan time.Time
		if l.active.Load() {
			if l.autopilot.Load() {
				ready, err := l.loadWaypointFile()
				if err != nil {
					return false, err
				}
				if ready {
					return true, nil
				}
				poll = l.clock.After(l.opts.WaypointPoll)
			} else if l.nav.PathLen() > 0 {
				return true, nil
			}
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case cmd := <-l.commands:
			l.dispatch(ctx, cmd)
		case <-poll:
		}
	}
	return false, nil
}

func (l *Loop) loadWaypointFile() (bool, error) {
	points, err := l.waypoints.Load()
	if errors.Is(err, waypoint.ErrNoWaypointFile) {
		utils.Logger.Debugf("waiting for waypoint file: %v", err)
		return false, nil
	}
	if err != nil {
		utils.Logger.Errorf("❌ WAYPOINT FILE LOAD FAILED: %v", err)
		return false, nil
	}
	if len(points) == 0 {
		return false, nil
	}
	l.nav.SetPath(points)
	utils.Logger.Infof("📍 WAYPOINT FILE LOADED: %d waypoints", len(points))
	return true, nil
}

// initNavigation 위치 fix 가 없으면 poll 주기로 재시도. 시작하지 못하면 false
func (l *Loop) initNavigation(ctx context.Context) (bool, error) {
	for l.operative.Load() && l.active.Load() {
		err := l.nav.InitNavigation(ctx, l.clock.Now(), l.autopilot.Load())
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, navigator.ErrNoPositionFix) {
			utils.Logger.Errorf("❌ NAVIGATION INIT FAILED: %v", err)
			l.active.Store(false)
			l.nav.ClearPath()
			return false, nil
		}

		utils.Logger.Warnf("⏳ WAITING FOR POSITION FIX")
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case cmd := <-l.commands:
			l.dispatch(ctx, cmd)
		case <-l.clock.After(l.opts.WaypointPoll):
		}
	}
	return false, nil
}

// run 활성인 동안 고정 주기 실행 후 세션 정리
func (l *Loop) run(ctx context.Context) error {
	l.cycles = 0
	var runErr error

	for l.active.Load() && l.operative.Load() {
		if l.nav.ReachedWP() {
			utils.Logger.Infof("🎯 WAYPOINT REACHED (%d/%d)", l.nav.ResumeIndex()+1, l.nav.PathLen())
			if !l.nav.NextWP() {
				utils.Logger.Infof("🏁 PATH FINISHED")
				break
			}
		}

		deadline := l.nav.AdvanceTime()
		if err := l.sleepUntil(ctx, deadline); err != nil {
			runErr = err
			break
		}
		if !l.active.Load() || !l.operative.Load() {
			break
		}

		if err := l.nav.Cycle(ctx); err != nil {
			utils.Logger.Errorf("❌ NAVIGATION CYCLE FAILED: %v", err)
			l.active.Store(false)
			break
		}

		l.cycles++
		if l.opts.StatusEvery > 0 && l.cycles%l.opts.StatusEvery == 0 {
			l.publishStatus(ctx, false)
		}
	}

	if err := l.nav.Teardown(); err != nil {
		utils.Logger.Errorf("❌ NAVIGATION TEARDOWN INCOMPLETE: %v", err)
	}
	l.autopilot.Store(false)
	return runErr
}

// sleepUntil 절대 시각까지 대기하며 명령 처리. 이미 지난 시각이면 바로 반환
func (l *Loop) sleepUntil(ctx context.Context, deadline time.Time) error {
	for {
		wait := deadline.Sub(l.clock.Now())
		if wait <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.commands:
			l.dispatch(ctx, cmd)
			if !l.active.Load() || !l.operative.Load() {
				return nil
			}
		case <-l.clock.After(wait):
			return nil
		}
	}
}

// awaitOperate 종료 상태에서 OPERATE 대기. 그 외 명령은 상태 조회만 처리
func (l *Loop) awaitOperate(ctx context.Context) error {
	utils.Logger.Infof("💤 NAVIGATOR TERMINATED, WAITING FOR OPERATE")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-l.commands:
			switch cmd.Type {
			case command.Operate:
				l.operative.Store(true)
				return nil
			case command.GetStatus:
				l.publishStatus(ctx, true)
			default:
				utils.Logger.Warnf("⚠️ COMMAND IGNORED WHILE TERMINATED: %s", cmd.Type)
			}
		}
	}
}

// snapshot 루프 고루틴 전용
func (l *Loop) snapshot() models.Status {
	st := l.nav.Status()
	st.Active = l.active.Load()
	st.AutoPilot = l.autopilot.Load()
	st.Phase = l.Phase()
	st.Timestamp = l.clock.Now()
	return st
}

// publishStatus force 가 아니면 변화가 없을 때 heartbeat 주기로만 발행
func (l *Loop) publishStatus(ctx context.Context, force bool) {
	st := l.snapshot()

	l.mu.Lock()
	l.last = st
	l.mu.Unlock()

	key := st.VehicleID
	fingerprint := fmt.Sprintf("%.1f|%.1f|%.0f|%t|%t|%s", st.Lon*1e5, st.Lat*1e5, st.Bearing, st.Active, st.AutoPilot, st.Phase)
	if !force && !l.gate.ShouldUpdate(key, fingerprint) {
		return
	}
	l.gate.Update(key, fingerprint)
	st.Seq = utils.NextStatusSeq()

	for _, sink := range l.sinks {
		if err := sink.PublishStatus(ctx, st); err != nil {
			utils.Logger.Warnf("⚠️ STATUS PUBLISH FAILED: %v", err)
		}
	}
}

// internal/navigator/session.go - 항해 세션 (초기화, 주기 실행, 종료)
package navigator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"boat-navigator/internal/geo"
	"boat-navigator/internal/kalman"
	"boat-navigator/internal/models"
	"boat-navigator/internal/telemetry"
	"boat-navigator/internal/utils"

	"gonum.org/v1/gonum/mat"
)

const resumeKey = "resumeFromWp"

// InitNavigation 파라미터를 읽고 필터 상태와 첫 웨이포인트 쌍을 설정한다
func (n *Navigator) InitNavigation(ctx context.Context, now time.Time, autopilot bool) error {
	if len(n.path) == 0 {
		return ErrEmptyPath
	}

	params, err := n.deps.Params.Load()
	if err != nil {
		return fmt.Errorf("load navigation params: %w", err)
	}

	start, err := n.startPosition(params.SimulateGPS)
	if err != nil {
		return err
	}

	n.params = params
	n.r = measurementNoise(params)
	n.k = params.K
	n.autopilot = autopilot

	// 재개: 자동항법이고 마지막 웨이포인트 이전일 때만
	n.cursor, n.resume = 0, 0
	if r := params.ResumeFromWp; autopilot && r > 0 && r < len(n.path)-1 {
		n.cursor, n.resume = r, r
	}
	n.lwp = start
	n.cwp = n.path[n.cursor]
	n.hasCwp = true

	n.predictionTime = now
	n.lastTime = now
	n.lastFixTime = now
	n.nsteps = 1
	n.stamps = [measDim]time.Time{}
	n.consumed = [measDim]time.Time{}
	n.meas = [measDim]float64{}
	n.lastVelPos = start
	n.lastVelTime = now
	n.bearingAnchor = nil

	if autopilot && n.load == 0 {
		n.load = CruiseLoad
	}

	heading := 0.0
	if h, ok := n.deps.Sensors.LatestHeading(); ok {
		heading = h.Rad
	}
	n.state = [stateDim]float64{start.X, start.Y, n.loadSpeed(), heading, 0}
	if err := n.kf.SetState(n.stateVec(), kalman.Identity(stateDim)); err != nil {
		return err
	}

	if err := n.deps.Actuator.StartMotor(); err != nil {
		utils.Logger.Errorf("❌ START MOTOR FAILED: %v", err)
	}

	n.sessionID = n.newSessionID()
	if err := n.deps.Recorder.Begin(ctx, telemetry.Session{
		ID:         n.sessionID,
		VehicleID:  n.deps.VehicleID,
		Start:      now,
		AutoPilot:  autopilot,
		Waypoints:  len(n.path),
		ResumeFrom: n.resume,
		Append:     params.AppendLogs,
	}); err != nil {
		utils.Logger.Errorf("❌ TELEMETRY BEGIN FAILED: %v", err)
	}

	n.steer(ctx)
	n.actuate(n.pursuit.TurnRate)
	if err := n.configureFilter(); err != nil {
		return err
	}

	utils.Logger.Infof("🧭 NAVIGATION INITIALIZED - session: %s, waypoints: %d, start wp: %d, autopilot: %t",
		n.sessionID, len(n.path), n.cursor, autopilot)
	return nil
}

func (n *Navigator) newSessionID() string {
	if n.deps.IDs == nil {
		return ""
	}
	return n.deps.IDs.GenerateUniqueID()
}

// startPosition 최신 fix. 시뮬레이션이면 첫 웨이포인트에서 출발
func (n *Navigator) startPosition(simulate bool) (geo.Point, error) {
	if fix, ok := n.deps.Sensors.LatestFix(); ok {
		return fix.Pos, nil
	}
	if simulate {
		return n.path[0], nil
	}
	return geo.Point{}, ErrNoPositionFix
}

// AdvanceTime 예측 시각을 dt 만큼 전진. 반환값은 다음 주기 마감 시각
func (n *Navigator) AdvanceTime() time.Time {
	n.lastTime = n.predictionTime
	n.predictionTime = n.predictionTime.Add(n.params.Interval())
	return n.predictionTime
}

// Cycle 한 주기: 예측 → 측정 → 보정 → 조향 → 구동 → 재설정
func (n *Navigator) Cycle(ctx context.Context) error {
	if err := n.kf.Predict(); err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	n.pullState()
	predicted := n.state

	if n.params.Compass {
		n.updateCompass()
	}
	n.markEncoders()

	if n.updateGPS() {
		n.nsteps = 1
	} else {
		n.nsteps++
	}

	mask := n.freshMask()
	var fresh [measDim]bool
	copy(fresh[:], mask)
	if err := n.deps.Recorder.Meas(ctx, telemetry.MeasRecord{
		Time: n.predictionTime, Values: n.meas, Fresh: fresh,
	}); err != nil {
		utils.Logger.Warnf("⚠️ MEAS LOG FAILED: %v", err)
	}

	if err := n.correct(mask); err != nil {
		return err
	}

	if err := n.deps.Recorder.State(ctx, telemetry.StateRecord{
		Time: n.predictionTime, State: n.state, Predicted: predicted,
	}); err != nil {
		utils.Logger.Warnf("⚠️ STATE LOG FAILED: %v", err)
	}

	n.reloadParams()

	n.steer(ctx)
	n.actuate(n.pursuit.TurnRate)

	// 정속 항주 중에만 k 재계산
	if v := n.V(); v > 0.5 && n.load > 0 && n.params.UpdateK {
		n.k = n.load / (v * v * v)
	}

	return n.configureFilter()
}

// correct 부분 보정. 필터 비활성이거나 S 가 특이하면 측정값으로 대체
func (n *Navigator) correct(mask []bool) error {
	if !n.params.Filter {
		return n.bypass(mask)
	}

	err := n.kf.PartialUpdate(mask, n.measVec(), n.r)
	if errors.Is(err, kalman.ErrSingular) {
		utils.Logger.Warnf("⚠️ FILTER UPDATE SINGULAR, BYPASSING: %v", err)
		return n.bypass(mask)
	}
	if err != nil {
		return fmt.Errorf("partial update: %w", err)
	}
	n.pullState()
	return nil
}

func (n *Navigator) bypass(mask []bool) error {
	x := n.measuredState(mask)
	if err := n.kf.Bypass(mat.NewVecDense(stateDim, x[:])); err != nil {
		return err
	}
	n.state = x
	return nil
}

// reloadParams 파라미터 파일이 바뀌었으면 다시 읽는다. 실패 시 기존 값 유지
func (n *Navigator) reloadParams() {
	if !n.deps.Params.Changed() {
		return
	}
	params, err := n.deps.Params.Load()
	if err != nil {
		utils.Logger.Errorf("❌ PARAM RELOAD FAILED, KEEPING CURRENT: %v", err)
		return
	}
	n.params = params
	n.r = measurementNoise(params)
	n.k = params.K
	utils.Logger.Infof("🔄 NAVIGATION PARAMS RELOADED")
}

// steer pure pursuit 계산과 기하 로그
func (n *Navigator) steer(ctx context.Context) {
	if !n.hasCwp {
		n.pursuit = Pursuit{}
		return
	}
	n.pursuit = PurePursuit(n.pose(), n.V(), n.lwp, n.cwp, PursuitLimits{
		LookAhead:     n.params.LookAhead,
		MinLookAhead:  n.params.MinLookAhead,
		MinTurnRadius: n.params.MinTurnRadius,
	})

	if err := n.deps.Recorder.Nav(ctx, telemetry.NavRecord{
		Time:      n.predictionTime,
		Pos:       n.Pos(),
		Lwp:       n.lwp,
		Cwp:       n.cwp,
		Goal:      n.pursuit.Goal,
		LookAhead: n.pursuit.LookAhead,
		TurnRate:  n.pursuit.TurnRate,
		Rudder:    TurnRateToAngle(n.pursuit.TurnRate, n.V(), n.params.MaxRudderAngle),
	}); err != nil {
		utils.Logger.Warnf("⚠️ NAV LOG FAILED: %v", err)
	}
}

// actuate 엔코더 의사측정 갱신과 방향타/모터 구동. 구동 실패는 로그만 남긴다
func (n *Navigator) actuate(turnRate float64) {
	n.turnRate = turnRate
	if n.params.EncoderVel {
		n.meas[MeasVLoad] = n.loadSpeed()
	}
	if err := n.deps.Actuator.SetMotorLoad(int(n.load)); err != nil {
		utils.Logger.Errorf("❌ SET MOTOR LOAD FAILED: %v", err)
	}

	n.rudder = TurnRateToAngle(turnRate, n.V(), n.params.MaxRudderAngle)
	if n.params.EncoderTurnrate {
		n.meas[MeasTurnRateRudder] = turnRate
	}
	if err := n.deps.Actuator.SetRudderAngle(int(math.Round(n.rudder))); err != nil {
		utils.Logger.Errorf("❌ SET RUDDER FAILED: %v", err)
	}
}

// Teardown 모터 정지, 재개 인덱스 저장, 경로 초기화, 로그 종료
func (n *Navigator) Teardown() error {
	var errs []error
	if err := n.deps.Actuator.StopMotor(); err != nil {
		utils.Logger.Errorf("❌ STOP MOTOR FAILED: %v", err)
		errs = append(errs, err)
	}
	n.load = 0
	n.rudder = 0

	if n.autopilot && n.params != nil {
		// 경로를 모두 끝냈으면 처음부터 다시 시작하도록 0 저장
		resume := 0
		if n.resume < len(n.path)-1 {
			resume = n.resume
		}
		if err := n.deps.Params.SetInt(resumeKey, resume); err != nil {
			utils.Logger.Errorf("❌ PERSIST RESUME INDEX FAILED: %v", err)
			errs = append(errs, err)
		} else {
			utils.Logger.Infof("💾 RESUME INDEX SAVED: %d", resume)
		}
	}

	n.ClearPath()
	n.autopilot = false

	if err := n.deps.Recorder.Close(); err != nil {
		utils.Logger.Errorf("❌ TELEMETRY CLOSE FAILED: %v", err)
		errs = append(errs, err)
	}

	utils.Logger.Infof("🛑 NAVIGATION SESSION ENDED - session: %s", n.sessionID)
	return errors.Join(errs...)
}

// Status 보고용 스냅샷. 모드 플래그와 단계는 호출자가 채운다
func (n *Navigator) Status() models.Status {
	lon, lat := geo.ToWGS84(n.Pos())
	bearing := math.Mod(rad2deg(n.Phi()), 360)
	if bearing < 0 {
		bearing += 360
	}

	st := models.Status{
		VehicleID:       n.deps.VehicleID,
		Lon:             lon,
		Lat:             lat,
		Speed:           n.V(),
		Bearing:         bearing,
		TurnRate:        n.TurnRate(),
		ProgressPercent: n.Progress(),
		AutoPilot:       n.autopilot,
		RudderAngle:     n.rudder,
	}
	if cwp, ok := n.Current(); ok {
		cLon, cLat := geo.ToWGS84(cwp)
		st.CwpLon, st.CwpLat = &cLon, &cLat
	}
	return st
}

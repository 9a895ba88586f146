// internal/control/dispatch.go - 명령 실행 (루프 고루틴 전용)
package control

import (
	"context"

	"boat-navigator/internal/command"
	"boat-navigator/internal/geo"
	"boat-navigator/internal/utils"
)

func (l *Loop) dispatch(ctx context.Context, cmd command.Command) {
	log := utils.Component("control").WithField("command", cmd.Type)
	if cmd.ID != "" {
		log = log.WithField("command_id", cmd.ID)
	}
	log.Infof("⚙️ EXECUTING COMMAND")

	switch cmd.Type {
	case command.Activate:
		l.active.Store(true)
	case command.Deactivate:
		l.active.Store(false)
	case command.AutoPilot:
		l.setAutoPilot(true)
	case command.Manual:
		l.setAutoPilot(false)
	case command.Operate:
		l.operative.Store(true)
	case command.Shutdown:
		l.operative.Store(false)

	case command.SetRudder:
		if err := l.actuator.SetRudderAngle(cmd.Angle); err != nil {
			log.Errorf("❌ SET RUDDER FAILED: %v", err)
		}
	case command.SetLoad:
		l.setLoad(cmd.Load)
	case command.StartMotor:
		if err := l.actuator.StartMotor(); err != nil {
			log.Errorf("❌ START MOTOR FAILED: %v", err)
		}
		l.setLoad(cmd.Load)
	case command.StopMotor:
		l.setLoad(cmd.Load)
		if err := l.actuator.StopMotor(); err != nil {
			log.Errorf("❌ STOP MOTOR FAILED: %v", err)
		}

	case command.AddWaypoint, command.AddSurvey:
		points := project(cmd.Positions)
		l.nav.AppendWaypoints(points...)
		if l.setAutoPilot(false) {
			log.Infof("🔀 AUTOPILOT CANCELLED BY INTERACTIVE WAYPOINT")
		}
		if cmd.Type == command.AddSurvey {
			if err := l.waypoints.WriteSurvey(points); err != nil {
				log.Errorf("❌ SURVEY WRITE FAILED: %v", err)
			}
		}
		log.Infof("📍 WAYPOINTS ADDED: %d (path length %d)", len(points), l.nav.PathLen())

	case command.GetStatus:
		l.publishStatus(ctx, true)

	default:
		log.Warnf("⚠️ UNHANDLED COMMAND")
	}
}

// setAutoPilot 루프 플래그와 진행 중인 세션을 함께 전환. 이전 값을 반환
func (l *Loop) setAutoPilot(on bool) bool {
	was := l.autopilot.Swap(on)
	l.nav.SetAutoPilot(on)
	return was
}

func (l *Loop) setLoad(pct int) {
	l.nav.SetLoad(float64(pct))
	if err := l.actuator.SetMotorLoad(pct); err != nil {
		utils.Logger.Errorf("❌ SET MOTOR LOAD FAILED: %v", err)
	}
}

func project(positions []command.Position) []geo.Point {
	points := make([]geo.Point, len(positions))
	for i, p := range positions {
		points[i] = geo.ToLocal(p.Lon, p.Lat)
	}
	return points
}

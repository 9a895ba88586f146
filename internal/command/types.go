// internal/command/types.go
package command

import (
	"time"
)

// Type 명령 종류
type Type string

const (
	Activate    Type = "ACTIVATE"
	Deactivate  Type = "DEACTIVATE"
	AutoPilot   Type = "AUTOPILOT"
	Manual      Type = "MANUAL"
	Operate     Type = "OPERATE"
	Shutdown    Type = "SHUTDOWN"
	SetRudder   Type = "SET_RUDDER"
	SetLoad     Type = "SET_LOAD"
	StartMotor  Type = "START_MOTOR"
	StopMotor   Type = "STOP_MOTOR"
	AddWaypoint Type = "ADD_WAYPOINT"
	AddSurvey   Type = "ADD_SURVEY"
	GetStatus   Type = "GET_STATUS"
)

// 별칭
var aliases = map[string]Type{
	"ADD_WP": AddWaypoint,
}

var known = map[Type]bool{
	Activate: true, Deactivate: true, AutoPilot: true, Manual: true,
	Operate: true, Shutdown: true, SetRudder: true, SetLoad: true,
	StartMotor: true, StopMotor: true, AddWaypoint: true, AddSurvey: true,
	GetStatus: true,
}

// START_MOTOR / STOP_MOTOR 부하 (%)
const (
	StartMotorLoad = 80
	StopMotorLoad  = 0
)

// Position WGS84 좌표 (deg)
type Position struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Command 파싱된 명령
type Command struct {
	ID         string     `json:"id"`
	Type       Type       `json:"type"`
	Raw        string     `json:"raw"`
	Angle      int        `json:"angle,omitempty"`
	Load       int        `json:"load,omitempty"`
	Positions  []Position `json:"positions,omitempty"`
	Source     string     `json:"source"`
	ReceivedAt time.Time  `json:"received_at"`
}

// Result 명령 접수 결과
type Result struct {
	Command   string    `json:"command"`
	ID        string    `json:"id,omitempty"`
	Status    string    `json:"status"` // S, F, X
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

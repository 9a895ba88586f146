// internal/models/status.go - 상태 보고 및 센서 메시지
package models

import "time"

// Status GET_STATUS 응답 스냅샷
type Status struct {
	VehicleID       string    `json:"vehicle_id"`
	Lon             float64   `json:"lon"`
	Lat             float64   `json:"lat"`
	Speed           float64   `json:"speed"`
	Bearing         float64   `json:"bearing"` // deg, 0 = 북, 시계방향
	TurnRate        float64   `json:"turn_rate"`
	ProgressPercent float64   `json:"progress_percent"`
	Active          bool      `json:"active"`
	AutoPilot       bool      `json:"autopilot"`
	RudderAngle     float64   `json:"rudder_angle"`
	CwpLon          *float64  `json:"cwp_lon"`
	CwpLat          *float64  `json:"cwp_lat"`
	Phase           string    `json:"phase"`
	Seq             uint64    `json:"seq"`
	Timestamp       time.Time `json:"timestamp"`
}

// PositionMessage GPS 위치 센서 메시지 (WGS84)
type PositionMessage struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"` // unix ms
}

// HeadingMessage 나침반 센서 메시지
type HeadingMessage struct {
	Heading   float64 `json:"heading"` // rad
	Timestamp int64   `json:"timestamp"`
}

// internal/models/navigation.go - 항해 텔레메트리 테이블
package models

import (
	"time"

	"gorm.io/gorm"
)

// NavSession 활성화 1회 = 세션 1개
type NavSession struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SessionID  string         `gorm:"size:36;not null;uniqueIndex" json:"session_id"` // uuid
	VehicleID  string         `gorm:"size:50;not null;index" json:"vehicle_id"`
	AutoPilot  bool           `gorm:"default:false" json:"auto_pilot"`
	Waypoints  int            `gorm:"default:0" json:"waypoints"`
	ResumeFrom int            `gorm:"default:0" json:"resume_from"`
	StartedAt  time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt    *time.Time     `json:"ended_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// StateSample 주기별 추정 상태와 예측 상태
type StateSample struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Time      time.Time `gorm:"not null;index" json:"time"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	V        float64 `json:"v"`
	Heading  float64 `json:"heading"`
	TurnRate float64 `json:"turn_rate"`

	PredX        float64 `json:"pred_x"`
	PredY        float64 `json:"pred_y"`
	PredV        float64 `json:"pred_v"`
	PredHeading  float64 `json:"pred_heading"`
	PredTurnRate float64 `json:"pred_turn_rate"`
}

// MeasSample 주기별 측정값. 갱신되지 않은 채널은 nil
type MeasSample struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Time      time.Time `gorm:"not null;index" json:"time"`

	XGPS           *float64 `json:"x_gps"`
	YGPS           *float64 `json:"y_gps"`
	VGPS           *float64 `json:"v_gps"`
	HeadingGPS     *float64 `json:"heading_gps"`
	HeadingCompass *float64 `json:"heading_compass"`
	TurnRateRudder *float64 `json:"turn_rate_rudder"`
	VLoad          *float64 `json:"v_load"`
}

// NavSample pure pursuit 기하 정보
type NavSample struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Time      time.Time `gorm:"not null;index" json:"time"`

	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	LwpX      float64 `json:"lwp_x"`
	LwpY      float64 `json:"lwp_y"`
	CwpX      float64 `json:"cwp_x"`
	CwpY      float64 `json:"cwp_y"`
	GoalX     float64 `json:"goal_x"`
	GoalY     float64 `json:"goal_y"`
	LookAhead float64 `json:"look_ahead"`
	TurnRate  float64 `json:"turn_rate"`
	Rudder    float64 `json:"rudder"`
}

// internal/messaging/sensors.go - 센서 토픽 → 센서 버퍼
package messaging

import (
	"encoding/json"
	"time"

	"boat-navigator/internal/geo"
	"boat-navigator/internal/models"
	"boat-navigator/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// SensorSink 센서 버퍼 (sensor.Buffer)
type SensorSink interface {
	PositionUpdate(x, y float64, t time.Time, accuracy float64)
	HeadingUpdate(rad float64, t time.Time)
}

// SensorRouter 위치/방위 메시지를 로컬 좌표로 바꿔 버퍼에 넣는다
type SensorRouter struct {
	sink SensorSink
	now  func() time.Time
}

// NewSensorRouter 새 센서 핸들러 생성
func NewSensorRouter(sink SensorSink) *SensorRouter {
	return &SensorRouter{sink: sink, now: time.Now}
}

// HandlePosition WGS84 위치 메시지
func (s *SensorRouter) HandlePosition(client mqtt.Client, msg mqtt.Message) {
	var pos models.PositionMessage
	if err := json.Unmarshal(msg.Payload(), &pos); err != nil {
		utils.Logger.Errorf("Failed to parse position message: %v", err)
		return
	}
	if pos.Lon < -180 || pos.Lon > 180 || pos.Lat < -90 || pos.Lat > 90 {
		utils.Logger.Warnf("Position out of range: lon=%f lat=%f", pos.Lon, pos.Lat)
		return
	}

	p := geo.ToLocal(pos.Lon, pos.Lat)
	s.sink.PositionUpdate(p.X, p.Y, s.stamp(pos.Timestamp), pos.Accuracy)
}

// HandleHeading 나침반 방위 메시지 (rad)
func (s *SensorRouter) HandleHeading(client mqtt.Client, msg mqtt.Message) {
	var h models.HeadingMessage
	if err := json.Unmarshal(msg.Payload(), &h); err != nil {
		utils.Logger.Errorf("Failed to parse heading message: %v", err)
		return
	}
	s.sink.HeadingUpdate(h.Heading, s.stamp(h.Timestamp))
}

// stamp 타임스탬프가 없으면 수신 시각
func (s *SensorRouter) stamp(ms int64) time.Time {
	if ms <= 0 {
		return s.now()
	}
	return time.UnixMilli(ms)
}

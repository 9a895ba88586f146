// internal/interfaces/services.go
package interfaces

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CacheService Redis 캐시 관련 서비스 인터페이스
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error

	// Hash operations for per-vehicle snapshots
	HSet(ctx context.Context, key, field string, value interface{}) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// MessagePublisher MQTT 메시지 발행 인터페이스
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) error
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Actuator 방향타/모터 구동 인터페이스
type Actuator interface {
	SetRudderAngle(deg int) error
	SetMotorLoad(pct int) error
	StartMotor() error
	StopMotor() error
}

// Logger 로깅 인터페이스
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// UniqueIDGenerator 고유 ID 생성 인터페이스
type UniqueIDGenerator interface {
	GenerateUniqueID() string
}

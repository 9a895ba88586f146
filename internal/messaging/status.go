// internal/messaging/status.go
package messaging

import (
	"context"

	"boat-navigator/internal/models"
)

// StatusPublisher 상태 스냅샷을 JSON 으로 발행 (retained)
type StatusPublisher struct {
	client Client
	topic  string
}

// NewStatusPublisher 상태 발행기 생성
func NewStatusPublisher(client Client, topic string) *StatusPublisher {
	return &StatusPublisher{client: client, topic: topic}
}

// PublishStatus control.StatusSink 구현
func (p *StatusPublisher) PublishStatus(_ context.Context, status models.Status) error {
	return p.client.Publish(p.topic, 0, true, status)
}

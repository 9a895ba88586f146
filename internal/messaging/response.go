// internal/messaging/response.go
package messaging

import (
	"boat-navigator/internal/command"
	"boat-navigator/internal/common/constants"
	"boat-navigator/internal/utils"
)

// ResponseSender 명령 응답 전송기. 페이로드는 "COMMAND:STATUS"
type ResponseSender struct {
	client Client
	topic  string
}

// NewResponseSender 응답 전송기 생성
func NewResponseSender(client Client, topic string) *ResponseSender {
	return &ResponseSender{
		client: client,
		topic:  topic,
	}
}

// SendResult command.Responder 구현
func (p *ResponseSender) SendResult(result command.Result) error {
	return p.SendResponse(result.Command, result.Status, result.Message)
}

// SendResponse 응답 전송
func (p *ResponseSender) SendResponse(cmd, status, errMsg string) error {
	response := cmd + ":" + status

	if status != constants.StatusSuccess && errMsg != "" {
		utils.Logger.Errorf("Command %s failed: %s", cmd, errMsg)
	}

	if err := p.client.Publish(p.topic, 0, false, response); err != nil {
		utils.Logger.Errorf("Failed to send command response: %v", err)
		return err
	}

	utils.Logger.Infof("Response sent: %s", response)
	return nil
}

// internal/command/handler.go
package command

import (
	"errors"
	"strings"
	"time"

	"boat-navigator/internal/common/constants"
	"boat-navigator/internal/interfaces"
	"boat-navigator/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler 원격 명령 수신 핸들러 (MQTT, HTTP 공용)
type Handler struct {
	submitter Submitter
	responder Responder
	ids       interfaces.UniqueIDGenerator
	now       func() time.Time
}

// NewHandler 새 명령 핸들러 생성. responder 는 nil 가능
func NewHandler(submitter Submitter, responder Responder, ids interfaces.UniqueIDGenerator) *Handler {
	utils.Logger.Infof("🏗️ CREATING Command Handler")

	handler := &Handler{
		submitter: submitter,
		responder: responder,
		ids:       ids,
		now:       time.Now,
	}

	utils.Logger.Infof("✅ Command Handler CREATED")
	return handler
}

// HandleMQTTCommand MQTT 명령 토픽 콜백
func (h *Handler) HandleMQTTCommand(client mqtt.Client, msg mqtt.Message) {
	utils.Logger.Infof("📨 RAW COMMAND: %s (Topic: %s, QoS: %d)",
		string(msg.Payload()), msg.Topic(), msg.Qos())

	result := h.Handle(string(msg.Payload()), "mqtt")
	if h.responder == nil {
		return
	}
	if err := h.responder.SendResult(result); err != nil {
		utils.Logger.Errorf("Failed to send command response: %v", err)
	}
}

// Handle 파싱 후 루프에 제출. 결과는 접수 여부만 나타낸다
func (h *Handler) Handle(raw, source string) Result {
	raw = strings.TrimSpace(raw)
	cmd, err := Parse(raw)
	if err != nil {
		status := constants.StatusFailure
		if errors.Is(err, ErrUnknownCommand) {
			status = constants.StatusRejected
		}
		utils.Logger.Warnf("❌ COMMAND REJECTED: %s (%v)", raw, err)
		return Result{Command: commandName(raw), Status: status, Message: err.Error(), Timestamp: h.now()}
	}

	cmd.Source = source
	cmd.ReceivedAt = h.now()
	if h.ids != nil {
		cmd.ID = h.ids.GenerateUniqueID()
	}

	if err := h.submitter.Submit(cmd); err != nil {
		utils.Logger.Errorf("❌ COMMAND SUBMIT FAILED: %s (%v)", raw, err)
		return Result{Command: string(cmd.Type), ID: cmd.ID, Status: constants.StatusFailure, Message: err.Error(), Timestamp: h.now()}
	}

	utils.Logger.Infof("✅ COMMAND QUEUED: %s (ID: %s, Source: %s)", cmd.Type, cmd.ID, source)
	return Result{Command: string(cmd.Type), ID: cmd.ID, Status: constants.StatusSuccess, Message: "queued", Timestamp: h.now()}
}

// commandName 응답용 명령 이름 (인자 제외)
func commandName(raw string) string {
	name, _, _ := strings.Cut(raw, ";")
	return strings.ToUpper(strings.TrimSpace(name))
}

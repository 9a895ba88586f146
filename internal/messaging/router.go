// internal/messaging/router.go
package messaging

import (
	"boat-navigator/internal/config"
	"boat-navigator/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandHandler 명령 처리 인터페이스 (command.Handler)
type CommandHandler interface {
	HandleMQTTCommand(client mqtt.Client, msg mqtt.Message)
}

// SensorHandler 센서 메시지 처리 인터페이스
type SensorHandler interface {
	HandlePosition(client mqtt.Client, msg mqtt.Message)
	HandleHeading(client mqtt.Client, msg mqtt.Message)
}

// Topics 라우팅 대상 토픽
type Topics struct {
	Command  string
	Position string
	Heading  string
}

// TopicsFromConfig 설정에서 토픽 추출
func TopicsFromConfig(cfg *config.Config) Topics {
	return Topics{
		Command:  cfg.MQTTCommandTopic,
		Position: cfg.MQTTPositionTopic,
		Heading:  cfg.MQTTHeadingTopic,
	}
}

// Router 메시지 라우터
type Router struct {
	topics         Topics
	commandHandler CommandHandler
	sensorHandler  SensorHandler
}

// NewRouter 새 메시지 라우터 생성
func NewRouter(topics Topics, commandHandler CommandHandler, sensorHandler SensorHandler) *Router {
	utils.Logger.Infof("🏗️ CREATING Message Router")

	router := &Router{
		topics:         topics,
		commandHandler: commandHandler,
		sensorHandler:  sensorHandler,
	}

	utils.Logger.Infof("✅ Message Router CREATED")
	return router
}

// RouteMessage 토픽에 따라 메시지 라우팅
func (r *Router) RouteMessage(client mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	utils.Logger.Debugf("Routing message from topic: %s", topic)

	switch topic {
	case r.topics.Command:
		r.commandHandler.HandleMQTTCommand(client, msg)
	case r.topics.Position:
		r.sensorHandler.HandlePosition(client, msg)
	case r.topics.Heading:
		r.sensorHandler.HandleHeading(client, msg)
	default:
		utils.Logger.Warnf("Unhandled topic: %s", topic)
	}
}

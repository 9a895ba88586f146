// internal/messaging/client.go
package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"boat-navigator/internal/config"
	"boat-navigator/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client MQTT 클라이언트 인터페이스
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, callback MessageHandler) error
	Disconnect(quiesce uint)
	IsConnected() bool
}

// MessageHandler 메시지 핸들러 타입
type MessageHandler = mqtt.MessageHandler

// ErrPublishTimeout 브로커가 제한 시간 안에 발행을 확인하지 않음
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// 컨트롤 루프에서 호출되므로 브로커 지연이 주기를 밀어내지 않도록 짧게 둔다
const defaultPublishTimeout = 500 * time.Millisecond

// MQTTClient MQTT 클라이언트 구현체
type MQTTClient struct {
	client         mqtt.Client
	config         *config.Config
	publishTimeout time.Duration
}

// NewMQTTClient 새 MQTT 클라이언트 생성. 재연결 시 구독은 브로커 세션으로 유지된다
func NewMQTTClient(cfg *config.Config) (*MQTTClient, error) {
	utils.Logger.Infof("🏗️ CREATING MQTT Client")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(5 * time.Second)
	opts.SetCleanSession(false)
	opts.SetResumeSubs(true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		utils.Logger.Info("MQTT client connected")
	})

	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		utils.Logger.Errorf("MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	mqttClient := &MQTTClient{
		client:         client,
		config:         cfg,
		publishTimeout: defaultPublishTimeout,
	}

	utils.Logger.Infof("✅ MQTT Client CREATED")
	return mqttClient, nil
}

// Publish 메시지 발행. string/[]byte 외의 값은 JSON 으로 직렬화한다
func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	data, err := encodePayload(payload)
	if err != nil {
		return err
	}

	utils.Logger.Debugf("📤 MQTT SENDING %s (QoS: %d, Retained: %v): %s", topic, qos, retained, data)

	token := c.client.Publish(topic, qos, retained, data)
	if !token.WaitTimeout(c.publishTimeout) {
		utils.Logger.Warnf("⏳ MQTT SEND TIMEOUT: %s (%v)", topic, c.publishTimeout)
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		utils.Logger.Errorf("❌ MQTT SEND FAILED: %s - %v", topic, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func encodePayload(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		return data, nil
	}
}

// Subscribe 토픽 구독
func (c *MQTTClient) Subscribe(topic string, qos byte, callback MessageHandler) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	token := c.client.Subscribe(topic, qos, callback)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	utils.Logger.Infof("✅ Subscribed to topic: %s", topic)
	return nil
}

// Disconnect 연결 해제
func (c *MQTTClient) Disconnect(quiesce uint) {
	if c.client.IsConnected() {
		c.client.Disconnect(quiesce)
		utils.Logger.Info("MQTT client disconnected")
	}
}

// IsConnected 연결 상태 확인
func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnected()
}

// internal/messaging/subscriber.go
package messaging

import (
	"fmt"

	"boat-navigator/internal/utils"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscriber MQTT 구독 관리자
type Subscriber struct {
	client Client
	router *Router
}

// NewSubscriber 새 구독자 생성
func NewSubscriber(client Client, router *Router) *Subscriber {
	utils.Logger.Infof("🏗️ CREATING MQTT Subscriber")

	subscriber := &Subscriber{
		client: client,
		router: router,
	}

	utils.Logger.Infof("✅ MQTT Subscriber CREATED")
	return subscriber
}

// SubscribeAll 명령/센서 토픽 구독
func (s *Subscriber) SubscribeAll() error {
	utils.Logger.Infof("🔔 STARTING All Subscriptions")

	subscriptions := []struct {
		topic       string
		qos         byte
		description string
	}{
		{topic: s.router.topics.Command, qos: 1, description: "Navigator Commands"},
		{topic: s.router.topics.Position, qos: 0, description: "GPS Position"},
		{topic: s.router.topics.Heading, qos: 0, description: "Compass Heading"},
	}

	for _, sub := range subscriptions {
		if sub.topic == "" {
			continue
		}
		utils.Logger.Infof("🔔 SUBSCRIBING TO: %s (%s)", sub.topic, sub.description)

		if err := s.client.Subscribe(sub.topic, sub.qos, s.handleMessage); err != nil {
			utils.Logger.Errorf("❌ SUBSCRIPTION FAILED: %s - %v", sub.topic, err)
			return fmt.Errorf("failed to subscribe to %s: %w", sub.topic, err)
		}
	}

	utils.Logger.Infof("🎉 ALL SUBSCRIPTIONS COMPLETED")
	return nil
}

func (s *Subscriber) handleMessage(client mqtt.Client, msg mqtt.Message) {
	utils.Logger.Debugf("📨 MESSAGE RECEIVED %s: %s", msg.Topic(), string(msg.Payload()))
	s.router.RouteMessage(client, msg)
}

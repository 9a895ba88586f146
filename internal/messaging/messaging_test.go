package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"boat-navigator/internal/command"
	"boat-navigator/internal/common/constants"
	"boat-navigator/internal/geo"
	"boat-navigator/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type published struct {
	topic    string
	retained bool
	payload  interface{}
}

type fakeClient struct {
	mu         sync.Mutex
	published  []published
	subscribed map[string]MessageHandler
	publishErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscribed: map[string]MessageHandler{}}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{topic: topic, retained: retained, payload: payload})
	return nil
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[topic] = callback
	return nil
}

func (c *fakeClient) Disconnect(quiesce uint) {}
func (c *fakeClient) IsConnected() bool        { return true }

type fakeCommands struct{ payloads []string }

func (f *fakeCommands) HandleMQTTCommand(_ mqtt.Client, msg mqtt.Message) {
	f.payloads = append(f.payloads, string(msg.Payload()))
}

type fakeSink struct {
	x, y, acc float64
	t         time.Time
	heading   float64
	ht        time.Time
}

func (s *fakeSink) PositionUpdate(x, y float64, t time.Time, accuracy float64) {
	s.x, s.y, s.t, s.acc = x, y, t, accuracy
}

func (s *fakeSink) HeadingUpdate(rad float64, t time.Time) {
	s.heading, s.ht = rad, t
}

var testTopics = Topics{Command: "nav/cmd", Position: "nav/pos", Heading: "nav/hdg"}

func TestRouterDispatch(t *testing.T) {
	cmds := &fakeCommands{}
	sink := &fakeSink{}
	router := NewRouter(testTopics, cmds, NewSensorRouter(sink))

	router.RouteMessage(nil, &fakeMessage{topic: "nav/cmd", payload: []byte("ACTIVATE")})
	router.RouteMessage(nil, &fakeMessage{topic: "nav/pos", payload: []byte(`{"lon":18.07,"lat":59.33,"accuracy":4,"timestamp":1717243200000}`)})
	router.RouteMessage(nil, &fakeMessage{topic: "nav/hdg", payload: []byte(`{"heading":1.5,"timestamp":1717243200500}`)})
	router.RouteMessage(nil, &fakeMessage{topic: "nav/other", payload: []byte("x")})

	assert.Equal(t, []string{"ACTIVATE"}, cmds.payloads)

	want := geo.ToLocal(18.07, 59.33)
	assert.InDelta(t, want.X, sink.x, 1e-9)
	assert.InDelta(t, want.Y, sink.y, 1e-9)
	assert.Equal(t, 4.0, sink.acc)
	assert.Equal(t, time.UnixMilli(1717243200000), sink.t)

	assert.Equal(t, 1.5, sink.heading)
	assert.Equal(t, time.UnixMilli(1717243200500), sink.ht)
}

func TestSensorRouterRejectsBadPayloads(t *testing.T) {
	sink := &fakeSink{}
	r := NewSensorRouter(sink)

	r.HandlePosition(nil, &fakeMessage{payload: []byte("not json")})
	r.HandlePosition(nil, &fakeMessage{payload: []byte(`{"lon":500,"lat":0}`)})
	assert.True(t, sink.t.IsZero())

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	r.HandleHeading(nil, &fakeMessage{payload: []byte(`{"heading":0.25}`)})
	assert.Equal(t, now, sink.ht, "missing timestamp uses receive time")
}

func TestSubscribeAll(t *testing.T) {
	client := newFakeClient()
	cmds := &fakeCommands{}
	sub := NewSubscriber(client, NewRouter(testTopics, cmds, NewSensorRouter(&fakeSink{})))

	require.NoError(t, sub.SubscribeAll())
	assert.Len(t, client.subscribed, 3)

	client.subscribed["nav/cmd"](nil, &fakeMessage{topic: "nav/cmd", payload: []byte("GET_STATUS")})
	assert.Equal(t, []string{"GET_STATUS"}, cmds.payloads)
}

func TestResponseSender(t *testing.T) {
	client := newFakeClient()
	sender := NewResponseSender(client, "nav/response")

	require.NoError(t, sender.SendResult(command.Result{Command: "SET_LOAD", Status: constants.StatusSuccess}))
	require.NoError(t, sender.SendResult(command.Result{Command: "JUMP", Status: constants.StatusRejected, Message: "unknown"}))

	require.Len(t, client.published, 2)
	assert.Equal(t, "nav/response", client.published[0].topic)
	assert.Equal(t, "SET_LOAD:S", client.published[0].payload)
	assert.Equal(t, "JUMP:X", client.published[1].payload)

	client.publishErr = errors.New("offline")
	assert.Error(t, sender.SendResponse("ACTIVATE", constants.StatusSuccess, ""))
}

func TestStatusPublisher(t *testing.T) {
	client := newFakeClient()
	pub := NewStatusPublisher(client, "nav/status")

	lon, lat := 18.1, 59.3
	st := models.Status{VehicleID: "BOAT001", Lon: 18.0, Lat: 59.0, Active: true, CwpLon: &lon, CwpLat: &lat}
	require.NoError(t, pub.PublishStatus(context.Background(), st))

	require.Len(t, client.published, 1)
	assert.True(t, client.published[0].retained)

	data, err := encodePayload(client.published[0].payload)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 18.1, decoded["cwp_lon"])
	assert.Equal(t, true, decoded["active"])
}

func TestEncodePayload(t *testing.T) {
	data, err := encodePayload("ACTIVATE:S")
	require.NoError(t, err)
	assert.Equal(t, []byte("ACTIVATE:S"), data)

	_, err = encodePayload(func() {})
	assert.Error(t, err)
}

// brokerToken 완료 여부와 오류를 고정한 토큰
type brokerToken struct {
	complete bool
	err      error
}

func (t *brokerToken) Wait() bool { return t.complete }

func (t *brokerToken) WaitTimeout(d time.Duration) bool {
	if !t.complete {
		time.Sleep(d)
	}
	return t.complete
}

func (t *brokerToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}

func (t *brokerToken) Error() error { return t.err }

type fakeBroker struct {
	mqtt.Client
	token *brokerToken
}

func (b *fakeBroker) IsConnected() bool { return true }

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return b.token
}

func TestMQTTClientPublishTimeout(t *testing.T) {
	t.Run("stalled broker times out", func(t *testing.T) {
		c := &MQTTClient{client: &fakeBroker{token: &brokerToken{}}, publishTimeout: 20 * time.Millisecond}

		start := time.Now()
		err := c.Publish("nav/status", 0, true, models.Status{VehicleID: "BOAT001"})
		assert.ErrorIs(t, err, ErrPublishTimeout)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("broker error is returned", func(t *testing.T) {
		c := &MQTTClient{client: &fakeBroker{token: &brokerToken{complete: true, err: errors.New("not authorized")}}, publishTimeout: time.Second}

		err := c.Publish("nav/status", 0, false, "x")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPublishTimeout)
		assert.Contains(t, err.Error(), "not authorized")
	})

	t.Run("acknowledged publish", func(t *testing.T) {
		c := &MQTTClient{client: &fakeBroker{token: &brokerToken{complete: true}}, publishTimeout: time.Second}
		assert.NoError(t, c.Publish("nav/status", 0, false, "x"))
	})
}

// internal/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"boat-navigator/internal/actuator"
	"boat-navigator/internal/api"
	"boat-navigator/internal/command"
	"boat-navigator/internal/common/idgen"
	"boat-navigator/internal/config"
	"boat-navigator/internal/control"
	"boat-navigator/internal/database"
	"boat-navigator/internal/interfaces"
	"boat-navigator/internal/messaging"
	"boat-navigator/internal/navigator"
	"boat-navigator/internal/redis"
	"boat-navigator/internal/sensor"
	"boat-navigator/internal/services"
	"boat-navigator/internal/telemetry"
	"boat-navigator/internal/waypoint"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Container 의존성 주입 컨테이너
type Container struct {
	// Core Services
	Config      *config.Config
	Logger      interfaces.Logger
	UniqueIDGen interfaces.UniqueIDGenerator
	Params      *config.ParamStore
	NavParams   *config.NavParams
	Sensors     *sensor.Buffer
	Waypoints   *waypoint.Store

	// Infra Services
	Cache            interfaces.CacheService
	MessagePublisher interfaces.MessagePublisher
	Actuator         interfaces.Actuator
	Recorder         telemetry.Recorder
	Telemetry        *services.TelemetryServiceImpl
	StatusCache      *services.StatusCacheService

	// Navigation
	Navigator *navigator.Navigator
	Loop      *control.Loop

	// Handlers
	CommandHandler *command.Handler
	Router         *messaging.Router
	Subscriber     *messaging.Subscriber
	Room           *api.Room
	Server         *api.Server

	// Service
	NavigatorService *NavigatorService

	closers []func() error
}

// NewContainer 새로운 컨테이너 생성
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{}

	// 1. 기본 서비스들 초기화
	if err := container.initCoreServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to init core services: %w", err)
	}

	// 2. 인프라 서비스들 초기화
	if err := container.initInfraServices(cfg); err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to init infra services: %w", err)
	}

	// 3. 항해 서비스 초기화
	container.initNavigation()

	// 4. 핸들러들 초기화
	container.initHandlers()

	// 5. 서비스 초기화
	container.NavigatorService = NewNavigatorService(container)

	return container, nil
}

// initCoreServices 설정 파일과 공유 버퍼. 파라미터 오류는 여기서 실패한다
func (c *Container) initCoreServices(cfg *config.Config) error {
	c.Config = cfg
	c.Logger = services.NewLogger(cfg.LogLevel)
	c.UniqueIDGen = idgen.Command
	c.Sensors = sensor.NewBuffer()
	c.Waypoints = waypoint.NewStore(cfg.WaypointFile)

	c.Params = config.NewParamStore(cfg.ParamFile)
	if err := c.Params.EnsureDefaults(); err != nil {
		return fmt.Errorf("param file: %w", err)
	}
	params, err := c.Params.Load()
	if err != nil {
		return fmt.Errorf("param file %s: %w", cfg.ParamFile, err)
	}
	c.NavParams = params
	c.Logger.Infof("📂 NAVIGATION FILES - params: %s, waypoints: %s", c.Params.Path(), c.Waypoints.Path())

	return nil
}

// initInfraServices MQTT 는 필수, Redis/Postgres 는 설정에 따라
func (c *Container) initInfraServices(cfg *config.Config) error {
	mqttClient, err := messaging.NewMQTTClient(cfg)
	if err != nil {
		return fmt.Errorf("mqtt init failed: %w", err)
	}
	c.MessagePublisher = mqttClient

	if cfg.RedisEnabled {
		redisClient, err := redis.NewRedisClient(cfg)
		if err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
		c.Cache = services.NewCacheService(redisClient)
		c.closers = append(c.closers, redisClient.Close)
	}

	recorders := telemetry.Multi{telemetry.NewTSVRecorder(cfg.LogDir)}
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			c.closers = append(c.closers, sqlDB.Close)
		}
		c.Telemetry = services.NewTelemetryService(db, c.Cache)
		recorders = append(recorders, c.Telemetry)
	}
	c.Recorder = recorders

	act, err := newActuator(cfg)
	if err != nil {
		return fmt.Errorf("actuator init failed: %w", err)
	}
	c.Actuator = act

	return nil
}

func newActuator(cfg *config.Config) (interfaces.Actuator, error) {
	switch strings.ToLower(cfg.ActuatorMode) {
	case "gpio":
		return actuator.NewGPIOActuator(cfg.GPIOChip, cfg.RudderLine, cfg.MotorLine)
	case "dry-run", "":
		return actuator.NewLogActuator(), nil
	default:
		return nil, fmt.Errorf("unknown actuator mode %q", cfg.ActuatorMode)
	}
}

// initNavigation 네비게이터와 컨트롤 루프
func (c *Container) initNavigation() {
	c.Navigator = navigator.New(navigator.Deps{
		Params:    c.Params,
		Sensors:   c.Sensors,
		Actuator:  c.Actuator,
		Recorder:  c.Recorder,
		IDs:       idgen.SessionIDs{},
		VehicleID: c.Config.VehicleID,
	})

	c.Room = api.NewRoom()
	sinks := []control.StatusSink{
		messaging.NewStatusPublisher(c.MessagePublisher, c.Config.MQTTStatusTopic),
		c.Room,
	}
	if c.Cache != nil {
		c.StatusCache = services.NewStatusCacheService(c.Cache, c.Config.StatusTTL)
		sinks = append(sinks, c.StatusCache)
	}

	c.Loop = control.NewLoop(c.Navigator, c.Actuator, c.Waypoints, control.SystemClock(), control.Options{
		StatusEvery:  c.Config.StatusEvery,
		WaypointPoll: c.Config.WaypointPoll,
		AutoPilot:    c.NavParams != nil && c.NavParams.AutoPilot,
	}, sinks...)
}

// initHandlers 핸들러들 초기화
func (c *Container) initHandlers() {
	responder := messaging.NewResponseSender(c.MessagePublisher, c.Config.MQTTResponseTopic)
	c.CommandHandler = command.NewHandler(c.Loop, responder, c.UniqueIDGen)

	c.Router = messaging.NewRouter(
		messaging.TopicsFromConfig(c.Config),
		c.CommandHandler,
		messaging.NewSensorRouter(c.Sensors),
	)
	c.Subscriber = messaging.NewSubscriber(c.MessagePublisher, c.Router)

	c.Server = api.NewServer(
		c.Config.HTTPAddr,
		api.NewHandler(c.Loop, c.CommandHandler, c.MessagePublisher.IsConnected),
		c.Room,
	)
}

// Cleanup 리소스 정리
func (c *Container) Cleanup() {
	if c.MessagePublisher != nil {
		c.MessagePublisher.Disconnect(250)
	}
	if closer, ok := c.Actuator.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Errorf("actuator close failed: %v", err)
		}
	}
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			c.Logger.Errorf("cleanup failed: %v", err)
		}
	}
	c.Logger.Infof("Container cleanup completed")
}

// =============================================================================
// Navigator Service
// =============================================================================

type NavigatorService struct {
	container *Container
	wg        sync.WaitGroup
	loopErr   error
}

func NewNavigatorService(container *Container) *NavigatorService {
	return &NavigatorService{container: container}
}

// Start 구독, 컨트롤 루프, 웹소켓 룸 시작. HTTP 서버는 serveHTTP 가 true 일 때만
func (s *NavigatorService) Start(ctx context.Context, serveHTTP bool) error {
	c := s.container

	if err := c.Subscriber.SubscribeAll(); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.Room.Run(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := c.Loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.loopErr = err
			c.Logger.Errorf("❌ CONTROL LOOP FAILED: %v", err)
		}
	}()

	if serveHTTP {
		go func() {
			if err := c.Server.Start(); err != nil {
				c.Logger.Errorf("❌ HTTP SERVER FAILED: %v", err)
			}
		}()
	}

	c.Logger.Infof("🚀 Navigator service started successfully")
	return nil
}

// Wait 컨트롤 루프 종료 대기 (ctx 취소 후 teardown 까지)
func (s *NavigatorService) Wait() error {
	s.wg.Wait()
	return s.loopErr
}

// Stop HTTP 서버 종료
func (s *NavigatorService) Stop(ctx context.Context) error {
	return s.container.Server.Shutdown(ctx)
}

// GetHealthStatus 헬스 체크 상태 반환
func (s *NavigatorService) GetHealthStatus() map[string]interface{} {
	return map[string]interface{}{
		"mqtt_connected": s.container.MessagePublisher.IsConnected(),
		"phase":          s.container.Loop.Phase(),
		"timestamp":      time.Now().Format(time.RFC3339),
		"status":         "running",
	}
}

// =============================================================================
// 팩토리 함수들 (테스트용)
// =============================================================================

// NewTestContainer 외부 연결 없이 컨테이너 생성
func NewTestContainer(
	cfg *config.Config,
	cache interfaces.CacheService,
	messagePublisher interfaces.MessagePublisher,
	act interfaces.Actuator,
	logger interfaces.Logger,
) (*Container, error) {
	container := &Container{
		Cache:            cache,
		MessagePublisher: messagePublisher,
		Actuator:         act,
		Recorder:         telemetry.Discard{},
	}
	if err := container.initCoreServices(cfg); err != nil {
		return nil, err
	}
	container.Logger = logger

	container.initNavigation()
	container.initHandlers()
	container.NavigatorService = NewNavigatorService(container)

	return container, nil
}

// =============================================================================
// Mock 구현체들 (테스트용)
// =============================================================================

type MockCacheService struct {
	mu       sync.Mutex
	data     map[string]string
	hashData map[string]map[string]string
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		data:     make(map[string]string),
		hashData: make(map[string]map[string]string),
	}
}

func (m *MockCacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprintf("%v", value)
	return nil
}

func (m *MockCacheService) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MockCacheService) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.hashData, key)
	}
	return nil
}

func (m *MockCacheService) HSet(ctx context.Context, key, field string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashData[key] == nil {
		m.hashData[key] = make(map[string]string)
	}
	m.hashData[key][field] = fmt.Sprintf("%v", value)
	return nil
}

func (m *MockCacheService) HGet(ctx context.Context, key, field string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hash, ok := m.hashData[key]; ok {
		return hash[field], nil
	}
	return "", nil
}

func (m *MockCacheService) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.hashData[key] {
		out[k] = v
	}
	return out, nil
}

type MockMessagePublisher struct {
	mu                sync.Mutex
	publishedMessages []MockMessage
	subscriptions     map[string]mqtt.MessageHandler
	connected         bool
}

type MockMessage struct {
	Topic    string
	Retained bool
	Payload  interface{}
}

func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{
		publishedMessages: make([]MockMessage, 0),
		subscriptions:     make(map[string]mqtt.MessageHandler),
		connected:         true,
	}
}

func (m *MockMessagePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedMessages = append(m.publishedMessages, MockMessage{
		Topic:    topic,
		Retained: retained,
		Payload:  payload,
	})
	return nil
}

func (m *MockMessagePublisher) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = callback
	return nil
}

func (m *MockMessagePublisher) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMessagePublisher) Disconnect(quiesce uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

// Deliver 구독된 핸들러로 메시지 전달
func (m *MockMessagePublisher) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if !ok {
		return false
	}
	handler(nil, &mockMQTTMessage{topic: topic, payload: payload})
	return true
}

func (m *MockMessagePublisher) GetLastMessage() *MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.publishedMessages) == 0 {
		return nil
	}
	msg := m.publishedMessages[len(m.publishedMessages)-1]
	return &msg
}

func (m *MockMessagePublisher) GetPublishedMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.publishedMessages...)
}

type mockMQTTMessage struct {
	topic   string
	payload []byte
}

func (m *mockMQTTMessage) Duplicate() bool   { return false }
func (m *mockMQTTMessage) Qos() byte         { return 0 }
func (m *mockMQTTMessage) Retained() bool    { return false }
func (m *mockMQTTMessage) Topic() string     { return m.topic }
func (m *mockMQTTMessage) MessageID() uint16 { return 0 }
func (m *mockMQTTMessage) Payload() []byte   { return m.payload }
func (m *mockMQTTMessage) Ack()              {}

type MockLogger struct {
	mu   sync.Mutex
	logs []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{logs: make([]string, 0)}
}

func (m *MockLogger) add(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, line)
}

func (m *MockLogger) Debug(args ...interface{}) { m.add(fmt.Sprintf("DEBUG: %v", args)) }

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("DEBUG: "+format, args...))
}

func (m *MockLogger) Info(args ...interface{}) { m.add(fmt.Sprintf("INFO: %v", args)) }

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.add(fmt.Sprintf("INFO: "+format, args...))
}

func (m *MockLogger) Warn(args ...interface{}) { m.add(fmt.Sprintf("WARN: %v", args)) }

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("WARN: "+format, args...))
}

func (m *MockLogger) Error(args ...interface{}) { m.add(fmt.Sprintf("ERROR: %v", args)) }

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("ERROR: "+format, args...))
}

func (m *MockLogger) Fatal(args ...interface{}) { m.add(fmt.Sprintf("FATAL: %v", args)) }

func (m *MockLogger) Fatalf(format string, args ...interface{}) {
	m.add(fmt.Sprintf("FATAL: "+format, args...))
}

func (m *MockLogger) ContainsLog(substring string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, log := range m.logs {
		if strings.Contains(log, substring) {
			return true
		}
	}
	return false
}

func (m *MockLogger) GetLogs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.logs...)
}

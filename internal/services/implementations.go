// internal/services/implementations.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	rediskeys "boat-navigator/internal/common/redis"
	"boat-navigator/internal/interfaces"
	"boat-navigator/internal/models"
	"boat-navigator/internal/telemetry"
	"boat-navigator/internal/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// =============================================================================
// Telemetry Service Implementation (telemetry.Recorder on Postgres)
// =============================================================================

// ErrTelemetryBacklog 쓰기 대기열이 가득 차 레코드를 버림
var ErrTelemetryBacklog = errors.New("telemetry: write backlog full")

const telemetryQueueSize = 512

// rowStore 텔레메트리 행 저장소 (gorm)
type rowStore interface {
	Create(ctx context.Context, row interface{}) error
	MarkEnded(session *models.NavSession, at time.Time) error
}

type gormStore struct{ db *gorm.DB }

func (g gormStore) Create(ctx context.Context, row interface{}) error {
	return g.db.WithContext(ctx).Create(row).Error
}

func (g gormStore) MarkEnded(session *models.NavSession, at time.Time) error {
	return g.db.Model(session).Update("ended_at", at).Error
}

// TelemetryServiceImpl 세션 행은 동기, 주기 샘플은 백그라운드 writer 가 기록한다.
// 컨트롤 루프는 DB 지연에 묶이지 않는다
type TelemetryServiceImpl struct {
	store rowStore
	cache interfaces.CacheService

	mu      sync.Mutex
	session *models.NavSession
	queue   chan interface{}
	done    chan struct{}
	dropped int
	now     func() time.Time
}

// NewTelemetryService cache 는 nil 가능
func NewTelemetryService(db *gorm.DB, cache interfaces.CacheService) *TelemetryServiceImpl {
	return newTelemetryService(gormStore{db: db}, cache)
}

func newTelemetryService(store rowStore, cache interfaces.CacheService) *TelemetryServiceImpl {
	return &TelemetryServiceImpl{store: store, cache: cache, now: time.Now}
}

func (t *TelemetryServiceImpl) Begin(ctx context.Context, s telemetry.Session) error {
	// 닫히지 않은 이전 세션은 먼저 비운다
	if err := t.Close(); err != nil {
		utils.Logger.Warnf("⚠️ PREVIOUS TELEMETRY SESSION CLOSE FAILED: %v", err)
	}

	session := &models.NavSession{
		SessionID:  s.ID,
		VehicleID:  s.VehicleID,
		AutoPilot:  s.AutoPilot,
		Waypoints:  s.Waypoints,
		ResumeFrom: s.ResumeFrom,
		StartedAt:  s.Start,
	}
	if err := t.store.Create(ctx, session); err != nil {
		return fmt.Errorf("create nav session: %w", err)
	}

	queue := make(chan interface{}, telemetryQueueSize)
	done := make(chan struct{})
	go t.writer(queue, done)

	t.mu.Lock()
	t.session = session
	t.queue = queue
	t.done = done
	t.dropped = 0
	t.mu.Unlock()

	if t.cache != nil {
		if err := t.cache.Set(ctx, rediskeys.LastSession(s.VehicleID), s.ID, 0); err != nil {
			return fmt.Errorf("cache last session: %w", err)
		}
		if err := t.cache.HSet(ctx, rediskeys.Session(s.ID), "started_at", s.Start.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("cache session: %w", err)
		}
	}
	return nil
}

// writer 대기열이 닫힐 때까지 행 기록
func (t *TelemetryServiceImpl) writer(queue <-chan interface{}, done chan<- struct{}) {
	defer close(done)
	for row := range queue {
		if err := t.store.Create(context.Background(), row); err != nil {
			utils.Logger.Warnf("⚠️ TELEMETRY ROW WRITE FAILED: %v", err)
		}
	}
}

// enqueue 블로킹 없이 대기열에 넣는다
func (t *TelemetryServiceImpl) enqueue(build func(sessionID string) interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil {
		return telemetry.ErrNotStarted
	}
	select {
	case t.queue <- build(t.session.SessionID):
		return nil
	default:
		t.dropped++
		return ErrTelemetryBacklog
	}
}

func (t *TelemetryServiceImpl) Nav(_ context.Context, rec telemetry.NavRecord) error {
	return t.enqueue(func(id string) interface{} { return navSample(id, rec) })
}

func (t *TelemetryServiceImpl) State(_ context.Context, rec telemetry.StateRecord) error {
	return t.enqueue(func(id string) interface{} { return stateSample(id, rec) })
}

func (t *TelemetryServiceImpl) Meas(_ context.Context, rec telemetry.MeasRecord) error {
	return t.enqueue(func(id string) interface{} { return measSample(id, rec) })
}

// Close 남은 행을 모두 기록한 뒤 세션 종료 시각 기록
func (t *TelemetryServiceImpl) Close() error {
	t.mu.Lock()
	session, queue, done, dropped := t.session, t.queue, t.done, t.dropped
	t.session, t.queue, t.done = nil, nil, nil
	t.mu.Unlock()

	if session == nil {
		return nil
	}
	close(queue)
	<-done
	if dropped > 0 {
		utils.Logger.Warnf("⚠️ TELEMETRY SESSION %s DROPPED %d ROWS", session.SessionID, dropped)
	}
	return t.store.MarkEnded(session, t.now())
}

func navSample(sessionID string, rec telemetry.NavRecord) *models.NavSample {
	return &models.NavSample{
		SessionID: sessionID,
		Time:      rec.Time,
		X:         rec.Pos.X,
		Y:         rec.Pos.Y,
		LwpX:      rec.Lwp.X,
		LwpY:      rec.Lwp.Y,
		CwpX:      rec.Cwp.X,
		CwpY:      rec.Cwp.Y,
		GoalX:     rec.Goal.X,
		GoalY:     rec.Goal.Y,
		LookAhead: rec.LookAhead,
		TurnRate:  rec.TurnRate,
		Rudder:    rec.Rudder,
	}
}

func stateSample(sessionID string, rec telemetry.StateRecord) *models.StateSample {
	s, p := rec.State, rec.Predicted
	return &models.StateSample{
		SessionID:    sessionID,
		Time:         rec.Time,
		X:            s[0],
		Y:            s[1],
		V:            s[2],
		Heading:      s[3],
		TurnRate:     s[4],
		PredX:        p[0],
		PredY:        p[1],
		PredV:        p[2],
		PredHeading:  p[3],
		PredTurnRate: p[4],
	}
}

// measSample 갱신되지 않은 채널은 NULL
func measSample(sessionID string, rec telemetry.MeasRecord) *models.MeasSample {
	ch := func(i int) *float64 {
		if !rec.Fresh[i] {
			return nil
		}
		v := rec.Values[i]
		return &v
	}
	return &models.MeasSample{
		SessionID:      sessionID,
		Time:           rec.Time,
		XGPS:           ch(0),
		YGPS:           ch(1),
		VGPS:           ch(2),
		HeadingGPS:     ch(3),
		HeadingCompass: ch(4),
		TurnRateRudder: ch(5),
		VLoad:          ch(6),
	}
}

// =============================================================================
// Cache Service Implementation
// =============================================================================

type CacheServiceImpl struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) interfaces.CacheService {
	return &CacheServiceImpl{client: client}
}

func (c *CacheServiceImpl) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *CacheServiceImpl) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *CacheServiceImpl) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *CacheServiceImpl) HSet(ctx context.Context, key, field string, value interface{}) error {
	return c.client.HSet(ctx, key, field, value).Err()
}

func (c *CacheServiceImpl) HGet(ctx context.Context, key, field string) (string, error) {
	return c.client.HGet(ctx, key, field).Result()
}

func (c *CacheServiceImpl) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

// =============================================================================
// Status Cache (control.StatusSink on Redis)
// =============================================================================

// StatusCacheService 최신 상태 스냅샷을 JSON 으로 캐시
type StatusCacheService struct {
	cache interfaces.CacheService
	ttl   time.Duration
}

func NewStatusCacheService(cache interfaces.CacheService, ttl time.Duration) *StatusCacheService {
	return &StatusCacheService{cache: cache, ttl: ttl}
}

func (s *StatusCacheService) PublishStatus(ctx context.Context, status models.Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, rediskeys.VehicleStatus(status.VehicleID), string(data), s.ttl)
}

// Latest 캐시된 상태 조회
func (s *StatusCacheService) Latest(ctx context.Context, vehicleID string) (models.Status, error) {
	var status models.Status
	raw, err := s.cache.Get(ctx, rediskeys.VehicleStatus(vehicleID))
	if err != nil {
		return status, err
	}
	err = json.Unmarshal([]byte(raw), &status)
	return status, err
}

// =============================================================================
// Logger Implementation
// =============================================================================

type LoggerImpl struct {
	logger *logrus.Logger
}

func NewLogger(level string) interfaces.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return &LoggerImpl{logger: logger}
}

func (l *LoggerImpl) Debug(args ...interface{}) {
	l.logger.Debug(args...)
}

func (l *LoggerImpl) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *LoggerImpl) Info(args ...interface{}) {
	l.logger.Info(args...)
}

func (l *LoggerImpl) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *LoggerImpl) Warn(args ...interface{}) {
	l.logger.Warn(args...)
}

func (l *LoggerImpl) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *LoggerImpl) Error(args ...interface{}) {
	l.logger.Error(args...)
}

func (l *LoggerImpl) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *LoggerImpl) Fatal(args ...interface{}) {
	l.logger.Fatal(args...)
}

func (l *LoggerImpl) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf(format, args...)
}

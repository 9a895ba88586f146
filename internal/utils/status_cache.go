package utils

import (
	"sync"
	"time"
)

// StatusCache 상태 변경 감지를 위한 캐시. 변경이 없으면 heartbeat 주기로만 재전송한다.
type StatusCache struct {
	mu        sync.RWMutex
	statusMap map[string]*StatusEntry
	heartbeat time.Duration
	now       func() time.Time
}

// StatusEntry 캐시 엔트리
type StatusEntry struct {
	Status      string
	LastSent    time.Time
	UpdateCount int
}

// NewStatusCache 새 상태 캐시 생성
func NewStatusCache(heartbeat time.Duration) *StatusCache {
	return &StatusCache{
		statusMap: make(map[string]*StatusEntry),
		heartbeat: heartbeat,
		now:       time.Now,
	}
}

// ShouldUpdate 상태 업데이트 필요 여부 확인
func (c *StatusCache) ShouldUpdate(key string, newStatus string) bool {
	c.mu.RLock()
	entry, exists := c.statusMap[key]
	c.mu.RUnlock()

	// 첫 상태
	if !exists {
		return true
	}

	// 상태가 변경된 경우
	if entry.Status != newStatus {
		return true
	}

	// 하트비트
	return c.now().Sub(entry.LastSent) > c.heartbeat
}

// Update 전송 완료 기록
func (c *StatusCache) Update(key string, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, exists := c.statusMap[key]; exists {
		entry.Status = status
		entry.LastSent = now
		entry.UpdateCount++
		return
	}
	c.statusMap[key] = &StatusEntry{Status: status, LastSent: now, UpdateCount: 1}
}

// get 상태 조회
func (c *StatusCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, exists := c.statusMap[key]; exists {
		return entry.Status, true
	}
	return "", false
}

// Remove 상태 제거
func (c *StatusCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.statusMap, key)
}

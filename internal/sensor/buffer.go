// internal/sensor/buffer.go - 센서 콜백과 컨트롤 루프 사이의 공유 버퍼
package sensor

import (
	"sync"
	"time"

	"boat-navigator/internal/geo"
)

// Fix GPS 위치 (로컬 좌표)
type Fix struct {
	Pos      geo.Point
	Time     time.Time
	Accuracy float64
}

// Heading 나침반 방위 (rad)
type Heading struct {
	Rad  float64
	Time time.Time
}

// Buffer 최신 센서값 저장소. 센서 콜백 고루틴이 쓰고 컨트롤 루프가 읽는다.
type Buffer struct {
	mu         sync.RWMutex
	fix        Fix
	hasFix     bool
	heading    Heading
	hasHeading bool
	seq        uint64
}

// NewBuffer 빈 버퍼 생성
func NewBuffer() *Buffer {
	return &Buffer{}
}

// PositionUpdate 위치 갱신
func (b *Buffer) PositionUpdate(x, y float64, t time.Time, accuracy float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fix = Fix{Pos: geo.Point{X: x, Y: y}, Time: t, Accuracy: accuracy}
	b.hasFix = true
	b.seq++
}

// HeadingUpdate 방위 갱신
func (b *Buffer) HeadingUpdate(rad float64, t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.heading = Heading{Rad: rad, Time: t}
	b.hasHeading = true
	b.seq++
}

// LatestFix 마지막 위치
func (b *Buffer) LatestFix() (Fix, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fix, b.hasFix
}

// LatestHeading 마지막 방위
func (b *Buffer) LatestHeading() (Heading, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.heading, b.hasHeading
}

// updates 갱신 횟수
func (b *Buffer) updates() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

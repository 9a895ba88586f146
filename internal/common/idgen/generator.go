// internal/common/idgen/generator.go
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generator ID 생성기
type Generator struct {
	prefix string
}

// NewGenerator 새 ID 생성기 생성
func NewGenerator(prefix ...string) *Generator {
	var p string
	if len(prefix) > 0 {
		p = prefix[0]
	}
	return &Generator{
		prefix: p,
	}
}

// SessionID 항해 세션 ID (UUID v4)
func (g *Generator) SessionID() string {
	return uuid.NewString()
}

// GenerateUniqueID 접두사 + 8자리 hex + 타임스탬프
func (g *Generator) GenerateUniqueID() string {
	hexPart := g.generateHex(4)
	timestamp := time.Now().UnixNano()
	if g.prefix != "" {
		return fmt.Sprintf("%s_%s_%d", g.prefix, hexPart, timestamp)
	}
	return fmt.Sprintf("%s_%d", hexPart, timestamp)
}

// generateHex 지정된 바이트 수만큼 hex 문자열 생성
func (g *Generator) generateHex(byteCount int) string {
	randomBytes := make([]byte, byteCount)
	if _, err := rand.Read(randomBytes); err != nil {
		// 랜덤 생성 실패 시 타임스탬프 기반 fallback
		return fmt.Sprintf("fallback_%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(randomBytes)
}

var (
	// Session 항해 세션 생성기
	Session = NewGenerator("session")

	// Command 명령 추적 생성기
	Command = NewGenerator("cmd")
)

// SessionID 세션 ID 생성
func SessionID() string {
	return Session.SessionID()
}

// IsValidSessionID UUID 형식 검사
func IsValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SessionIDs UUID 세션 ID 를 interfaces.UniqueIDGenerator 로 노출
type SessionIDs struct{}

// GenerateUniqueID UUID v4
func (SessionIDs) GenerateUniqueID() string { return SessionID() }

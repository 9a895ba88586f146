// internal/common/redis/keys.go
package redis

import "fmt"

// Redis Key Patterns Redis 키 패턴 상수
const (
	VehicleStatusPattern = "navigator:status:%s"
	LastSessionPattern   = "navigator:last_session:%s"
	SessionPattern       = "navigator:session:%s"
)

// KeyGenerator Redis 키 생성기
type KeyGenerator struct{}

// NewKeyGenerator 새 키 생성기 생성
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// VehicleStatus 최신 상태 스냅샷 키
func (k *KeyGenerator) VehicleStatus(vehicleID string) string {
	return fmt.Sprintf(VehicleStatusPattern, vehicleID)
}

// LastSession 마지막 항해 세션 ID 키
func (k *KeyGenerator) LastSession(vehicleID string) string {
	return fmt.Sprintf(LastSessionPattern, vehicleID)
}

// Session 세션 메타데이터 해시 키
func (k *KeyGenerator) Session(sessionID string) string {
	return fmt.Sprintf(SessionPattern, sessionID)
}

// 전역 키 생성기 인스턴스
var Keys = NewKeyGenerator()

// VehicleStatus 최신 상태 스냅샷 키
func VehicleStatus(vehicleID string) string { return Keys.VehicleStatus(vehicleID) }

// LastSession 마지막 항해 세션 ID 키
func LastSession(vehicleID string) string { return Keys.LastSession(vehicleID) }

// Session 세션 메타데이터 해시 키
func Session(sessionID string) string { return Keys.Session(sessionID) }

// AllVehicleStatuses 모든 상태 키 패턴
func AllVehicleStatuses() string {
	return "navigator:status:*"
}

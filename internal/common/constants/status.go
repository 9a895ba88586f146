// internal/common/constants/status.go
package constants

// Response Status 명령 응답 상태 상수
const (
	StatusSuccess  = "S"
	StatusFailure  = "F"
	StatusRejected = "X" // 정의되지 않은 명령
)

// Connection State MQTT 연결 상태 상수
const (
	ConnectionStateOnline  = "ONLINE"
	ConnectionStateOffline = "OFFLINE"
)

// Phase 컨트롤 루프 단계
const (
	PhaseWaitForWaypoints = "WAIT_FOR_WAYPOINTS"
	PhaseInitNavigation   = "INIT_NAVIGATION"
	PhaseRun              = "RUN"
	PhaseTerminated       = "TERMINATED"
)

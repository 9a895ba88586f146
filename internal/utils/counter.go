package utils

import "sync/atomic"

var statusSeq atomic.Uint64

// NextStatusSeq 발행된 상태 메시지 순번. 수신 측이 누락/역전을 감지하는 데 쓴다
func NextStatusSeq() uint64 {
	return statusSeq.Add(1)
}

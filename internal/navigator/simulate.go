package navigator

import (
	"time"

	"boat-navigator/internal/geo"
)

// simulateDropout 표준정규 표본이 이 값보다 작으면 fix 누락 (약 31%)
const simulateDropout = -0.5

// simulateFix 예측 위치 주변 가우시안 잡음 fix
func (n *Navigator) simulateFix() (geo.Point, time.Time, bool) {
	if n.noise.Rand() < simulateDropout {
		return geo.Point{}, time.Time{}, false
	}
	pos := n.Pos()
	pos.X += n.noise.Rand() * n.params.SigmaXGPS
	pos.Y += n.noise.Rand() * n.params.SigmaXGPS
	return pos, n.predictionTime, true
}

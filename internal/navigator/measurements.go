// internal/navigator/measurements.go - 측정 갱신과 게이팅
package navigator

import (
	"math"
	"time"

	"boat-navigator/internal/geo"
)

// wrapNear ref 에 가장 가까운 h + 2πk 표현
func wrapNear(h, ref float64) float64 {
	return h + 2*math.Pi*math.Round((ref-h)/(2*math.Pi))
}

// freshMask 직전 주기 이후 갱신됐고 아직 보정에 쓰지 않은 채널.
// 반환된 채널은 소비된 것으로 기록한다
func (n *Navigator) freshMask() []bool {
	mask := make([]bool, measDim)
	for i, t := range n.stamps {
		mask[i] = t.After(n.lastTime) && t.After(n.consumed[i])
		if mask[i] {
			n.consumed[i] = t
		}
	}
	return mask
}

func (n *Navigator) setMeas(ch int, v float64, t time.Time) {
	n.meas[ch] = v
	n.stamps[ch] = t
}

// updateCompass 선회 중에는 나침반을 쓰지 않는다
func (n *Navigator) updateCompass() bool {
	if math.Abs(n.TurnRate()) >= deg2rad(n.params.CompassTurnrateThreshold) {
		return false
	}

	var heading float64
	var t time.Time
	if n.params.SimulateGPS {
		heading = n.Phi() + n.noise.Rand()*deg2rad(n.params.SigmaPhiCompass)
		t = n.predictionTime
	} else {
		h, ok := n.deps.Sensors.LatestHeading()
		if !ok || !h.Time.After(n.lastTime) || !h.Time.After(n.consumed[MeasPhiCompass]) {
			return false
		}
		heading, t = h.Rad, h.Time
	}

	n.setMeas(MeasPhiCompass, wrapNear(heading, n.Phi()), t)
	return true
}

// updateGPS 새 위치 fix 가 있으면 위치/속도/방위 측정을 갱신하고 true
func (n *Navigator) updateGPS() bool {
	pos, t, ok := n.nextFix()
	if !ok {
		return false
	}
	n.lastFixTime = t

	if n.params.GPSVel {
		n.updateGPSVel(pos, t)
	}
	if n.params.GPSBearing {
		n.updateGPSBearing(pos, t)
	}
	if n.params.GPSPosition {
		n.setMeas(MeasXGPS, pos.X, t)
		n.setMeas(MeasYGPS, pos.Y, t)
	}
	return true
}

// nextFix 이번 주기에 쓸 수 있는 fix (시뮬레이션 또는 센서 버퍼)
func (n *Navigator) nextFix() (geo.Point, time.Time, bool) {
	if n.params.SimulateGPS {
		return n.simulateFix()
	}

	fix, ok := n.deps.Sensors.LatestFix()
	if !ok {
		return geo.Point{}, time.Time{}, false
	}
	if !fix.Time.After(n.lastTime) || !fix.Time.After(n.lastFixTime) {
		return geo.Point{}, time.Time{}, false
	}
	if fix.Accuracy > n.params.GPSAccuracy {
		return geo.Point{}, time.Time{}, false
	}
	return fix.Pos, fix.Time, true
}

// updateGPSVel minVelDist 이상 이동했을 때만 속도 계산
func (n *Navigator) updateGPSVel(pos geo.Point, t time.Time) bool {
	dist := geo.Dist(pos, n.lastVelPos)
	if dist < n.params.MinVelDist {
		return false
	}
	elapsed := t.Sub(n.lastVelTime).Seconds()
	if elapsed <= 0 {
		return false
	}
	n.setMeas(MeasVGPS, dist/elapsed, t)
	n.lastVelPos = pos
	n.lastVelTime = t
	return true
}

// updateGPSBearing 직진 중 minBearingDist 이상 이동한 변위로 방위 계산
func (n *Navigator) updateGPSBearing(pos geo.Point, t time.Time) bool {
	if math.Abs(n.TurnRate()) > deg2rad(n.params.BearingTurnrateThreshold) {
		n.bearingAnchor = nil
		return false
	}
	if n.bearingAnchor == nil {
		anchor := pos
		n.bearingAnchor = &anchor
		return false
	}

	d := pos.Sub(*n.bearingAnchor)
	if d.Norm() < n.params.MinBearingDist {
		return false
	}
	heading := math.Pi/2 - math.Atan2(d.Y, d.X)
	n.setMeas(MeasPhiGPS, wrapNear(heading, n.Phi()), t)
	anchor := pos
	n.bearingAnchor = &anchor
	return true
}

// markEncoders 엔코더 의사측정은 예측 시각 기준으로 매 주기 갱신
func (n *Navigator) markEncoders() {
	if n.params.EncoderTurnrate {
		n.stamps[MeasTurnRateRudder] = n.predictionTime
	}
	if n.params.EncoderVel {
		n.stamps[MeasVLoad] = n.predictionTime
	}
}

// loadSpeed 부하로부터 속도 (load = k·V³)
func (n *Navigator) loadSpeed() float64 {
	if n.load <= 0 || n.k <= 0 {
		return 0
	}
	return math.Cbrt(n.load / n.k)
}

// measuredState 측정값으로 직접 만든 상태 (필터 비활성 또는 보정 실패 시)
func (n *Navigator) measuredState(mask []bool) [stateDim]float64 {
	x := n.state
	if mask[MeasXGPS] && mask[MeasYGPS] {
		x[StateX], x[StateY] = n.meas[MeasXGPS], n.meas[MeasYGPS]
	}
	switch {
	case mask[MeasVGPS]:
		x[StateV] = n.meas[MeasVGPS]
	case mask[MeasVLoad]:
		x[StateV] = n.meas[MeasVLoad]
	}
	switch {
	case mask[MeasPhiCompass]:
		x[StatePhi] = n.meas[MeasPhiCompass]
	case mask[MeasPhiGPS]:
		x[StatePhi] = n.meas[MeasPhiGPS]
	}
	if mask[MeasTurnRateRudder] {
		x[StateTurnRate] = n.meas[MeasTurnRateRudder]
	}
	return x
}

// internal/navigator/pursuit.go - pure pursuit 경로 추종
package navigator

import (
	"math"

	"boat-navigator/internal/geo"
)

// Pose 위치와 방위 (phi: 북쪽 0, 시계방향 양수)
type Pose struct {
	Pos geo.Point
	Phi float64
}

// toBody 항법 좌표 -> 선체 좌표 (선수 방향 +Y, 우현 +X)
func (p Pose) toBody(q geo.Point) geo.Point {
	d := q.Sub(p.Pos)
	sn, c := math.Sincos(p.Phi)
	return geo.Point{X: c*d.X - sn*d.Y, Y: sn*d.X + c*d.Y}
}

// toNav 선체 좌표 -> 항법 좌표
func (p Pose) toNav(b geo.Point) geo.Point {
	sn, c := math.Sincos(p.Phi)
	return geo.Point{X: c*b.X + sn*b.Y, Y: -sn*b.X + c*b.Y}.Add(p.Pos)
}

// PursuitLimits pure pursuit 튜닝 값
type PursuitLimits struct {
	LookAhead     float64
	MinLookAhead  float64
	MinTurnRadius float64
}

// Pursuit 조향 계산 결과 (Goal 은 항법 좌표)
type Pursuit struct {
	TurnRate   float64
	Goal       geo.Point
	LookAhead  float64
	CrossTrack float64
	Behind     bool
}

// PurePursuit lwp -> cwp 구간을 따라가기 위한 선회율(rad/s, 시계방향 양수)
func PurePursuit(pose Pose, v float64, lwp, cwp geo.Point, lim PursuitLimits) Pursuit {
	lwpB := pose.toBody(lwp)
	cwpB := pose.toBody(cwp)

	// 선수 기준 목표 각도, 반시계 양수
	target := normalizeAngle(math.Atan2(cwpB.Y, cwpB.X) - math.Pi/2)
	if math.Abs(target) > math.Pi/2 {
		// 목표가 뒤쪽: 가까운 방향으로 최대 선회
		maxTurnRate := v / lim.MinTurnRadius
		return Pursuit{
			TurnRate: -maxTurnRate * sign(target),
			Goal:     cwp,
			Behind:   true,
		}
	}

	// 선체 원점(자선)을 구간에 수직 투영
	seg := cwpB.Sub(lwpB)
	b := lwpB
	if segLen2 := seg.Dot(seg); segLen2 > 0 {
		t := geo.Point{}.Sub(lwpB).Dot(seg) / segLen2
		b = lwpB.Add(seg.Scale(t))
	}

	crossTrack := b.Norm()
	remaining := cwpB.Norm()
	lookAhead := math.Max(lim.MinLookAhead, math.Min(crossTrack+lim.LookAhead, remaining))

	goalB, ok := findGoalPoint(lwpB, cwpB, lookAhead)
	if !ok {
		goalB = cwpB
	}

	curvature := 2 * math.Abs(goalB.X) / (lookAhead * lookAhead)
	return Pursuit{
		TurnRate:   curvature * v * sign(goalB.X),
		Goal:       pose.toNav(goalB),
		LookAhead:  lookAhead,
		CrossTrack: crossTrack,
	}
}

// findGoalPoint 원점 중심 반경 r 원과 p1->p2 직선의 교점.
// 근이 둘이면 p2 쪽(매개변수가 큰 쪽)을 고른다.
func findGoalPoint(p1, p2 geo.Point, r float64) (geo.Point, bool) {
	d := p2.Sub(p1)
	a := d.Dot(d)
	b := 2 * d.Dot(p1)
	c := p1.Dot(p1) - r*r
	det := b*b - 4*a*c
	if a <= 1e-7 || det < 0 {
		return geo.Point{}, false
	}
	t := (-b + math.Sqrt(det)) / (2 * a)
	return p1.Add(d.Scale(t)), true
}

// normalizeAngle (-π, π]
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

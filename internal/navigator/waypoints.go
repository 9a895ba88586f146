// internal/navigator/waypoints.go - 경로 관리와 진행률
package navigator

import (
	"boat-navigator/internal/geo"
)

// SetPath 경로 교체
func (n *Navigator) SetPath(points []geo.Point) {
	n.path = append([]geo.Point(nil), points...)
}

// AppendWaypoints 경로 끝에 추가 (항해 중에도 가능)
func (n *Navigator) AppendWaypoints(points ...geo.Point) {
	n.path = append(n.path, points...)
}

// Path 경로 복사본
func (n *Navigator) Path() []geo.Point {
	return append([]geo.Point(nil), n.path...)
}

// PathLen 웨이포인트 수
func (n *Navigator) PathLen() int { return len(n.path) }

// ClearPath 경로 비우기
func (n *Navigator) ClearPath() {
	n.path = nil
	n.cursor = 0
	n.hasCwp = false
}

// Current 현재 목표 웨이포인트
func (n *Navigator) Current() (geo.Point, bool) { return n.cwp, n.hasCwp }

// ResumeIndex 재개용 웨이포인트 카운터
func (n *Navigator) ResumeIndex() int { return n.resume }

// ReachedWP 현재 웨이포인트까지 거리가 tolerance 이하
func (n *Navigator) ReachedWP() bool {
	if !n.hasCwp {
		return false
	}
	return geo.Dist(n.Pos(), n.cwp) <= n.params.Tolerance
}

// NextWP lwp ← cwp, 다음 웨이포인트로 이동. 경로가 끝났으면 false
func (n *Navigator) NextWP() bool {
	n.lwp = n.cwp
	n.resume++
	n.cursor++
	if n.cursor >= len(n.path) {
		n.hasCwp = false
		return false
	}
	n.cwp = n.path[n.cursor]
	return true
}

// Progress 완료된 구간 길이 비율 (%)
func (n *Navigator) Progress() float64 {
	return progress(n.path, n.resume)
}

func progress(path []geo.Point, resume int) float64 {
	if len(path) == 0 {
		return 0
	}
	if len(path) < 2 {
		return float64(resume) / float64(len(path)) * 100
	}

	var done, total float64
	for i := 1; i < len(path); i++ {
		seg := geo.Dist(path[i-1], path[i])
		if i <= resume {
			done += seg
		}
		total += seg
	}
	if total == 0 {
		return float64(resume) / float64(len(path)) * 100
	}
	return done / total * 100
}

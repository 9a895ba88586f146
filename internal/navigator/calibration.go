package navigator

import (
	"math"
	"sort"
)

// calibrationPoint 선회 반경(m) -> 방향타 각도(deg)
type calibrationPoint struct {
	radius float64
	angle  float64
}

// rudderCalibration 반경 오름차순, 각도는 단조 비증가
var rudderCalibration = []calibrationPoint{
	{1, 90}, {2, 85}, {3, 80}, {4, 75}, {5, 65}, {6, 60}, {7, 55}, {8, 50},
	{9, 45}, {10, 40}, {11, 35}, {12, 30}, {13, 25}, {14, 20}, {15, 20},
	{16.5, 20}, {19, 15}, {25, 10}, {40, 5}, {100, 1}, {1000, 0.5},
}

// TurnRateToAngle 목표 선회율(rad/s)과 속도(m/s)로 방향타 각도(deg)를 구한다.
// 표 범위 밖은 양 끝값으로 고정, 부호는 turnRate 를 따르며 ±maxAngle 로 제한된다.
func TurnRateToAngle(turnRate, v, maxAngle float64) float64 {
	if turnRate == 0 || v == 0 {
		return 0
	}
	radius := math.Abs(v / turnRate)
	angle := interpolateCalibration(radius)
	if maxAngle >= 0 {
		angle = math.Min(angle, maxAngle)
	}
	if turnRate < 0 {
		return -angle
	}
	return angle
}

func interpolateCalibration(radius float64) float64 {
	table := rudderCalibration
	first, last := table[0], table[len(table)-1]
	if radius <= first.radius {
		return first.angle
	}
	if radius >= last.radius {
		return last.angle
	}

	i := sort.Search(len(table), func(i int) bool { return table[i].radius >= radius })
	lo, hi := table[i-1], table[i]
	w := (radius - lo.radius) / (hi.radius - lo.radius)
	return lo.angle + w*(hi.angle-lo.angle)
}

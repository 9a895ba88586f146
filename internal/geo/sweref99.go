// internal/geo/sweref99.go - WGS84 <-> SWEREF99 TM (Gauss-Krüger)
package geo

import "math"

// Point 로컬 평면 좌표 (X: 동향 easting, Y: 북향 northing), 단위 m
type Point struct {
	X float64
	Y float64
}

// Sub p - o
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// Add p + o
func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

// Scale s·p
func (p Point) Scale(s float64) Point { return Point{X: p.X * s, Y: p.Y * s} }

// Dot 내적
func (p Point) Dot(o Point) float64 { return p.X*o.X + p.Y*o.Y }

// Norm 길이
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Dist 두 점 사이 거리
func Dist(a, b Point) float64 { return a.Sub(b).Norm() }

// Projection 횡메르카토르 투영 파라미터
type Projection struct {
	Axis            float64 // 장반경 a
	Flattening      float64 // 편평률 f
	CentralMeridian float64 // deg
	Scale           float64
	FalseNorthing   float64
	FalseEasting    float64
}

// SWEREF99TM GRS80 타원체, 중앙자오선 15°
var SWEREF99TM = Projection{
	Axis:            6378137.0,
	Flattening:      1.0 / 298.257222101,
	CentralMeridian: 15.0,
	Scale:           0.9996,
	FalseNorthing:   0.0,
	FalseEasting:    500000.0,
}

type krueger struct {
	aRoof                  float64
	a, b, c, d             float64
	beta1, beta2, beta3    float64
	beta4                  float64
	delta1, delta2, delta3 float64
	delta4                 float64
	aStar, bStar           float64
	cStar, dStar           float64
}

func (p Projection) coefficients() krueger {
	f := p.Flattening
	e2 := f * (2.0 - f)
	n := f / (2.0 - f)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n

	return krueger{
		aRoof: p.Axis / (1.0 + n) * (1.0 + n2/4.0 + n4/64.0),

		a: e2,
		b: (5.0*e2*e2 - e2*e2*e2) / 6.0,
		c: (104.0*e2*e2*e2 - 45.0*e2*e2*e2*e2) / 120.0,
		d: (1237.0 * e2 * e2 * e2 * e2) / 1260.0,

		beta1: n/2.0 - 2.0*n2/3.0 + 5.0*n3/16.0 + 41.0*n4/180.0,
		beta2: 13.0*n2/48.0 - 3.0*n3/5.0 + 557.0*n4/1440.0,
		beta3: 61.0*n3/240.0 - 103.0*n4/140.0,
		beta4: 49561.0 * n4 / 161280.0,

		delta1: n/2.0 - 2.0*n2/3.0 + 37.0*n3/96.0 - n4/360.0,
		delta2: n2/48.0 + n3/15.0 - 437.0*n4/1440.0,
		delta3: 17.0*n3/480.0 - 37.0*n4/840.0,
		delta4: 4397.0 * n4 / 161280.0,

		aStar: e2 + e2*e2 + e2*e2*e2 + e2*e2*e2*e2,
		bStar: -(7.0*e2*e2 + 17.0*e2*e2*e2 + 30.0*e2*e2*e2*e2) / 6.0,
		cStar: (224.0*e2*e2*e2 + 889.0*e2*e2*e2*e2) / 120.0,
		dStar: -(4279.0 * e2 * e2 * e2 * e2) / 1260.0,
	}
}

// Forward 경위도(deg) -> 평면 좌표
func (p Projection) Forward(lon, lat float64) Point {
	k := p.coefficients()
	phi := lat * math.Pi / 180.0
	lambda := lon * math.Pi / 180.0
	lambda0 := p.CentralMeridian * math.Pi / 180.0

	sinPhi := math.Sin(phi)
	s2 := sinPhi * sinPhi
	phiStar := phi - sinPhi*math.Cos(phi)*(k.a+k.b*s2+k.c*s2*s2+k.d*s2*s2*s2)

	dLambda := lambda - lambda0
	xiPrim := math.Atan(math.Tan(phiStar) / math.Cos(dLambda))
	etaPrim := math.Atanh(math.Cos(phiStar) * math.Sin(dLambda))

	northing := p.Scale*k.aRoof*(xiPrim+
		k.beta1*math.Sin(2*xiPrim)*math.Cosh(2*etaPrim)+
		k.beta2*math.Sin(4*xiPrim)*math.Cosh(4*etaPrim)+
		k.beta3*math.Sin(6*xiPrim)*math.Cosh(6*etaPrim)+
		k.beta4*math.Sin(8*xiPrim)*math.Cosh(8*etaPrim)) + p.FalseNorthing
	easting := p.Scale*k.aRoof*(etaPrim+
		k.beta1*math.Cos(2*xiPrim)*math.Sinh(2*etaPrim)+
		k.beta2*math.Cos(4*xiPrim)*math.Sinh(4*etaPrim)+
		k.beta3*math.Cos(6*xiPrim)*math.Sinh(6*etaPrim)+
		k.beta4*math.Cos(8*xiPrim)*math.Sinh(8*etaPrim)) + p.FalseEasting

	return Point{X: easting, Y: northing}
}

// Inverse 평면 좌표 -> 경위도(deg)
func (p Projection) Inverse(pt Point) (lon, lat float64) {
	k := p.coefficients()
	lambda0 := p.CentralMeridian * math.Pi / 180.0

	xi := (pt.Y - p.FalseNorthing) / (p.Scale * k.aRoof)
	eta := (pt.X - p.FalseEasting) / (p.Scale * k.aRoof)

	xiPrim := xi -
		k.delta1*math.Sin(2*xi)*math.Cosh(2*eta) -
		k.delta2*math.Sin(4*xi)*math.Cosh(4*eta) -
		k.delta3*math.Sin(6*xi)*math.Cosh(6*eta) -
		k.delta4*math.Sin(8*xi)*math.Cosh(8*eta)
	etaPrim := eta -
		k.delta1*math.Cos(2*xi)*math.Sinh(2*eta) -
		k.delta2*math.Cos(4*xi)*math.Sinh(4*eta) -
		k.delta3*math.Cos(6*xi)*math.Sinh(6*eta) -
		k.delta4*math.Cos(8*xi)*math.Sinh(8*eta)

	phiStar := math.Asin(math.Sin(xiPrim) / math.Cosh(etaPrim))
	dLambda := math.Atan(math.Sinh(etaPrim) / math.Cos(xiPrim))

	sinPhi := math.Sin(phiStar)
	s2 := sinPhi * sinPhi
	phi := phiStar + sinPhi*math.Cos(phiStar)*(k.aStar+k.bStar*s2+k.cStar*s2*s2+k.dStar*s2*s2*s2)

	return (lambda0 + dLambda) * 180.0 / math.Pi, phi * 180.0 / math.Pi
}

// ToLocal WGS84 -> SWEREF99 TM
func ToLocal(lon, lat float64) Point { return SWEREF99TM.Forward(lon, lat) }

// ToWGS84 SWEREF99 TM -> WGS84
func ToWGS84(p Point) (lon, lat float64) { return SWEREF99TM.Inverse(p) }

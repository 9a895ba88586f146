// internal/navigator/matrices.go - 칼만 필터 모델 행렬
package navigator

import (
	"math"

	"boat-navigator/internal/config"
	"boat-navigator/internal/kalman"

	"gonum.org/v1/gonum/mat"
)

// 상태 벡터 인덱스 [X, Y, V, phi, turn_rate]
const (
	StateX = iota
	StateY
	StateV
	StatePhi
	StateTurnRate
	stateDim
)

// 측정 벡터 인덱스
const (
	MeasXGPS = iota
	MeasYGPS
	MeasVGPS
	MeasPhiGPS
	MeasPhiCompass
	MeasTurnRateRudder
	MeasVLoad
	measDim
)

// transitionMatrix 등속 직진 모델. phi 는 북쪽 0, 시계방향
func transitionMatrix(phi, dt float64) *mat.Dense {
	F := kalman.Identity(stateDim)
	F.Set(StateX, StateV, math.Sin(phi)*dt)
	F.Set(StateY, StateV, math.Cos(phi)*dt)
	F.Set(StatePhi, StateTurnRate, dt)
	return F
}

// processNoise 추측항법 단계 수(nsteps)에 따라 커지는 프로세스 잡음
func processNoise(p *config.NavParams, phi, v float64, nsteps int) *mat.Dense {
	dt := p.Dt
	s := math.Sqrt(float64(nsteps))

	sigmaX := 0.5 * p.AxMax * dt * dt * s
	sigmaY := 0.5 * p.AyMax * dt * dt * s
	sigmaV := 0.5 * p.AyMax * dt * s
	sigmaPhi := math.Pi * deg2rad(p.MaxDirChange) * dt * s

	// 최대 선회율까지 tau 초가 걸린다고 보고 한 주기 동안의 변화량
	maxTurnRate := math.Abs(v) / p.MinTurnRadius
	sigmaBeta := math.Max(maxTurnRate*dt/p.Tau, deg2rad(p.SigmaBetaRudder)) * s

	c, sn := math.Abs(math.Cos(phi)), math.Abs(math.Sin(phi))
	Q := mat.NewDense(stateDim, stateDim, nil)
	Q.Set(StateX, StateX, sigmaX*sigmaX*c+sigmaY*sigmaY*sn)
	Q.Set(StateY, StateY, sigmaX*sigmaX*sn+sigmaY*sigmaY*c)
	Q.Set(StateV, StateV, sigmaV*sigmaV)
	Q.Set(StatePhi, StatePhi, sigmaPhi*sigmaPhi)
	Q.Set(StateTurnRate, StateTurnRate, sigmaBeta*sigmaBeta)
	return Q
}

// observationMatrix 측정 -> 상태 매핑
func observationMatrix() *mat.Dense {
	H := mat.NewDense(measDim, stateDim, nil)
	H.Set(MeasXGPS, StateX, 1)
	H.Set(MeasYGPS, StateY, 1)
	H.Set(MeasVGPS, StateV, 1)
	H.Set(MeasPhiGPS, StatePhi, 1)
	H.Set(MeasPhiCompass, StatePhi, 1)
	H.Set(MeasTurnRateRudder, StateTurnRate, 1)
	H.Set(MeasVLoad, StateV, 1) // load = k·V³
	return H
}

// measurementNoise 파라미터가 바뀔 때만 다시 만든다
func measurementNoise(p *config.NavParams) *mat.Dense {
	R := mat.NewDense(measDim, measDim, nil)
	R.Set(MeasXGPS, MeasXGPS, p.SigmaXGPS*p.SigmaXGPS)
	R.Set(MeasYGPS, MeasYGPS, p.SigmaXGPS*p.SigmaXGPS)
	R.Set(MeasVGPS, MeasVGPS, p.SigmaVGPS*p.SigmaVGPS)
	R.Set(MeasPhiGPS, MeasPhiGPS, sq(deg2rad(p.SigmaPhiGPS)))
	R.Set(MeasPhiCompass, MeasPhiCompass, sq(deg2rad(p.SigmaPhiCompass)))
	R.Set(MeasTurnRateRudder, MeasTurnRateRudder, sq(deg2rad(p.SigmaBetaRudder)))
	R.Set(MeasVLoad, MeasVLoad, p.SigmaVLoad*p.SigmaVLoad)
	return R
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func sq(v float64) float64 { return v * v }

// internal/navigator/navigator.go - 상태 추정 + 경로 추종 코어
package navigator

import (
	"errors"
	"math"
	"time"

	"boat-navigator/internal/config"
	"boat-navigator/internal/geo"
	"boat-navigator/internal/interfaces"
	"boat-navigator/internal/kalman"
	"boat-navigator/internal/sensor"
	"boat-navigator/internal/telemetry"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrEmptyPath 웨이포인트 없이 항해 시작
	ErrEmptyPath = errors.New("navigator: no waypoints")
	// ErrNoPositionFix 시작 위치를 알 수 없음
	ErrNoPositionFix = errors.New("navigator: no position fix")
)

// CruiseLoad 자동항법 시작 시 모터 부하가 0 이면 사용하는 값 (%)
const CruiseLoad = 80

// ParamSource 파라미터 저장소 (config.ParamStore)
type ParamSource interface {
	Load() (*config.NavParams, error)
	Changed() bool
	SetInt(key string, value int) error
}

// SensorSource 최신 센서값 (sensor.Buffer)
type SensorSource interface {
	LatestFix() (sensor.Fix, bool)
	LatestHeading() (sensor.Heading, bool)
}

// Deps Navigator 외부 의존성
type Deps struct {
	Params    ParamSource
	Sensors   SensorSource
	Actuator  interfaces.Actuator
	Recorder  telemetry.Recorder
	IDs       interfaces.UniqueIDGenerator
	VehicleID string
}

// Navigator 칼만 필터 상태 추정과 pure pursuit 조향.
// 컨트롤 루프 고루틴 하나만 사용한다.
type Navigator struct {
	deps   Deps
	params *config.NavParams
	kf     *kalman.Filter
	h      *mat.Dense
	r      *mat.Dense

	state  [stateDim]float64
	meas   [measDim]float64
	stamps [measDim]time.Time

	// 채널별 마지막으로 보정에 쓴 측정 시각
	consumed [measDim]time.Time

	// 경로
	path      []geo.Point
	cursor    int // cwp 인덱스
	lwp, cwp  geo.Point
	hasCwp    bool
	resume    int
	autopilot bool
	sessionID string

	// 시간
	predictionTime time.Time
	lastTime       time.Time
	nsteps         int

	// 측정 게이팅
	lastFixTime   time.Time
	lastVelPos    geo.Point
	lastVelTime   time.Time
	bearingAnchor *geo.Point

	// 조향/구동
	pursuit  Pursuit
	turnRate float64
	rudder   float64
	load     float64
	k        float64

	noise distuv.Normal
}

// New Navigator 생성
func New(deps Deps) *Navigator {
	if deps.Recorder == nil {
		deps.Recorder = telemetry.Discard{}
	}
	return &Navigator{
		deps:  deps,
		kf:    kalman.NewFilter(stateDim),
		h:     observationMatrix(),
		noise: distuv.Normal{Mu: 0, Sigma: 1},
	}
}

// Pos 추정 위치
func (n *Navigator) Pos() geo.Point {
	return geo.Point{X: n.state[StateX], Y: n.state[StateY]}
}

// V 추정 속도 (m/s)
func (n *Navigator) V() float64 { return n.state[StateV] }

// Phi 추정 방위 (rad)
func (n *Navigator) Phi() float64 { return n.state[StatePhi] }

// TurnRate 추정 선회율 (rad/s)
func (n *Navigator) TurnRate() float64 { return n.state[StateTurnRate] }

// Load 현재 모터 부하 (%)
func (n *Navigator) Load() float64 { return n.load }

// SetAutoPilot 항해 중 모드 전환. Teardown 의 재개 인덱스 저장 여부를 결정한다
func (n *Navigator) SetAutoPilot(on bool) { n.autopilot = on }

// SetLoad 모터 부하 설정. 다음 주기 구동과 V_load 측정에 반영된다.
func (n *Navigator) SetLoad(pct float64) {
	n.load = math.Max(0, math.Min(100, pct))
}

func (n *Navigator) pose() Pose { return Pose{Pos: n.Pos(), Phi: n.Phi()} }

func (n *Navigator) stateVec() *mat.VecDense {
	return mat.NewVecDense(stateDim, append([]float64(nil), n.state[:]...))
}

func (n *Navigator) measVec() *mat.VecDense {
	return mat.NewVecDense(measDim, append([]float64(nil), n.meas[:]...))
}

func (n *Navigator) pullState() {
	x := n.kf.State()
	for i := 0; i < stateDim; i++ {
		n.state[i] = x.AtVec(i)
	}
}

// configureFilter 현재 방위와 nsteps 로 F/Q/H 재설정
func (n *Navigator) configureFilter() error {
	F := transitionMatrix(n.Phi(), n.params.Dt)
	Q := processNoise(n.params, n.Phi(), n.V(), n.nsteps)
	return n.kf.Configure(F, Q, n.h)
}

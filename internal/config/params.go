// internal/config/params.go - 항해 파라미터 파일 (핫 리로드 지원)
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	// ErrMissingParam 필수 파라미터 누락
	ErrMissingParam = errors.New("missing navigation parameter")
	// ErrInvalidParam 값 범위 오류
	ErrInvalidParam = errors.New("invalid navigation parameter")
)

// NavParams 항해 튜닝 파라미터. 각도 단위 파라미터는 파일에 deg 로 저장된다.
type NavParams struct {
	// Pure pursuit
	Tolerance      float64
	LookAhead      float64
	MinLookAhead   float64
	MaxRudderAngle float64
	MinTurnRadius  float64

	// 프로세스 노이즈
	AxMax        float64
	AyMax        float64
	MaxDirChange float64 // deg
	Tau          float64 // s

	// 측정 노이즈
	SigmaXGPS       float64
	SigmaVGPS       float64
	SigmaPhiGPS     float64 // deg
	SigmaPhiCompass float64 // deg
	SigmaBetaRudder float64 // deg/s
	SigmaVLoad      float64

	// 측정 게이팅
	MinVelDist               float64
	MinBearingDist           float64
	BearingTurnrateThreshold float64 // deg/s
	CompassTurnrateThreshold float64 // deg/s
	GPSAccuracy              float64

	K            float64 // load = k·V³
	Dt           float64 // s
	ResumeFromWp int

	// 스위치
	Filter          bool
	Compass         bool
	GPSPosition     bool
	GPSVel          bool
	GPSBearing      bool
	EncoderVel      bool
	EncoderTurnrate bool
	UpdateK         bool
	SimulateGPS     bool
	AppendLogs      bool
	AutoPilot       bool
}

// Interval 제어 주기
func (p *NavParams) Interval() time.Duration {
	return time.Duration(p.Dt * float64(time.Second))
}

type paramBinding struct {
	key string
	set func(p *NavParams, raw string) error
	get func(p *NavParams) string
}

func floatParam(key string, field func(p *NavParams) *float64) paramBinding {
	return paramBinding{
		key: key,
		set: func(p *NavParams, raw string) error {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidParam, key, raw)
			}
			*field(p) = v
			return nil
		},
		get: func(p *NavParams) string { return strconv.FormatFloat(*field(p), 'g', -1, 64) },
	}
}

func intParam(key string, field func(p *NavParams) *int) paramBinding {
	return paramBinding{
		key: key,
		set: func(p *NavParams, raw string) error {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidParam, key, raw)
			}
			*field(p) = v
			return nil
		},
		get: func(p *NavParams) string { return strconv.Itoa(*field(p)) },
	}
}

func boolParam(key string, field func(p *NavParams) *bool) paramBinding {
	return paramBinding{
		key: key,
		set: func(p *NavParams, raw string) error {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidParam, key, raw)
			}
			*field(p) = v
			return nil
		},
		get: func(p *NavParams) string { return strconv.FormatBool(*field(p)) },
	}
}

var navParamBindings = []paramBinding{
	floatParam("tolerance", func(p *NavParams) *float64 { return &p.Tolerance }),
	floatParam("look_ahead", func(p *NavParams) *float64 { return &p.LookAhead }),
	floatParam("min_look_ahead", func(p *NavParams) *float64 { return &p.MinLookAhead }),
	floatParam("max_rudder_angle", func(p *NavParams) *float64 { return &p.MaxRudderAngle }),
	floatParam("min_turn_radius", func(p *NavParams) *float64 { return &p.MinTurnRadius }),
	floatParam("ax_max", func(p *NavParams) *float64 { return &p.AxMax }),
	floatParam("ay_max", func(p *NavParams) *float64 { return &p.AyMax }),
	floatParam("max_dir_change", func(p *NavParams) *float64 { return &p.MaxDirChange }),
	floatParam("tau", func(p *NavParams) *float64 { return &p.Tau }),
	floatParam("sigmaX_GPS", func(p *NavParams) *float64 { return &p.SigmaXGPS }),
	floatParam("sigmaV_GPS", func(p *NavParams) *float64 { return &p.SigmaVGPS }),
	floatParam("sigmaPhi_GPS", func(p *NavParams) *float64 { return &p.SigmaPhiGPS }),
	floatParam("sigmaPhi_compass", func(p *NavParams) *float64 { return &p.SigmaPhiCompass }),
	floatParam("sigmaBeta_rudder", func(p *NavParams) *float64 { return &p.SigmaBetaRudder }),
	floatParam("sigmaV_load", func(p *NavParams) *float64 { return &p.SigmaVLoad }),
	floatParam("minVelDist", func(p *NavParams) *float64 { return &p.MinVelDist }),
	floatParam("minBearingDist", func(p *NavParams) *float64 { return &p.MinBearingDist }),
	floatParam("bearingTurnrateThreshold", func(p *NavParams) *float64 { return &p.BearingTurnrateThreshold }),
	floatParam("compassTurnrateThreshold", func(p *NavParams) *float64 { return &p.CompassTurnrateThreshold }),
	floatParam("gpsAccuracy", func(p *NavParams) *float64 { return &p.GPSAccuracy }),
	floatParam("k", func(p *NavParams) *float64 { return &p.K }),
	floatParam("dt", func(p *NavParams) *float64 { return &p.Dt }),
	intParam("resumeFromWp", func(p *NavParams) *int { return &p.ResumeFromWp }),
	boolParam("filterSwitch", func(p *NavParams) *bool { return &p.Filter }),
	boolParam("compassSwitch", func(p *NavParams) *bool { return &p.Compass }),
	boolParam("gpsPositionSwitch", func(p *NavParams) *bool { return &p.GPSPosition }),
	boolParam("gpsVelSwitch", func(p *NavParams) *bool { return &p.GPSVel }),
	boolParam("gpsBearingSwitch", func(p *NavParams) *bool { return &p.GPSBearing }),
	boolParam("encoderVelSwitch", func(p *NavParams) *bool { return &p.EncoderVel }),
	boolParam("encoderTurnrateSwitch", func(p *NavParams) *bool { return &p.EncoderTurnrate }),
	boolParam("updateKSwitch", func(p *NavParams) *bool { return &p.UpdateK }),
	boolParam("simulateGPS", func(p *NavParams) *bool { return &p.SimulateGPS }),
	boolParam("appendLogs", func(p *NavParams) *bool { return &p.AppendLogs }),
	boolParam("autoPilot", func(p *NavParams) *bool { return &p.AutoPilot }),
}

// DefaultNavParams 현장 기본값
func DefaultNavParams() *NavParams {
	return &NavParams{
		Tolerance:                10,
		LookAhead:                10,
		MinLookAhead:             2,
		MaxRudderAngle:           75,
		MinTurnRadius:            10,
		AxMax:                    0.05,
		AyMax:                    0.5,
		MaxDirChange:             2,
		Tau:                      2,
		SigmaXGPS:                3,
		SigmaVGPS:                1,
		SigmaPhiGPS:              10,
		SigmaPhiCompass:          10,
		SigmaBetaRudder:          5,
		SigmaVLoad:               5,
		MinVelDist:               10,
		MinBearingDist:           5,
		BearingTurnrateThreshold: 1,
		CompassTurnrateThreshold: 1,
		GPSAccuracy:              25,
		K:                        3.14,
		Dt:                       0.5,
		ResumeFromWp:             0,
		Filter:                   true,
		Compass:                  true,
		GPSPosition:              true,
		GPSVel:                   true,
		GPSBearing:               true,
		EncoderVel:               true,
		EncoderTurnrate:          true,
		AppendLogs:               true,
	}
}

// ParseNavParams 모든 키가 존재해야 하며 누락 시 ErrMissingParam
func ParseNavParams(values map[string]string) (*NavParams, error) {
	p := &NavParams{}
	var missing []string

	for _, b := range navParamBindings {
		raw, ok := values[b.key]
		if !ok {
			missing = append(missing, b.key)
			continue
		}
		if err := b.set(p, strings.TrimSpace(raw)); err != nil {
			return nil, err
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingParam, strings.Join(missing, ", "))
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate 값 범위 검사
func (p *NavParams) Validate() error {
	positive := map[string]float64{
		"dt":              p.Dt,
		"k":               p.K,
		"min_turn_radius": p.MinTurnRadius,
		"min_look_ahead":  p.MinLookAhead,
		"tau":             p.Tau,
	}
	keys := make([]string, 0, len(positive))
	for key := range positive {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if v := positive[key]; !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidParam, key, v)
		}
	}

	if p.Tolerance < 0 || p.LookAhead < 0 || p.MaxRudderAngle < 0 {
		return fmt.Errorf("%w: tolerance, look_ahead and max_rudder_angle must be >= 0", ErrInvalidParam)
	}
	if p.ResumeFromWp < 0 {
		return fmt.Errorf("%w: resumeFromWp must be >= 0", ErrInvalidParam)
	}
	return nil
}

// Values 파일 저장용 key -> value 맵
func (p *NavParams) Values() map[string]string {
	values := make(map[string]string, len(navParamBindings))
	for _, b := range navParamBindings {
		values[b.key] = b.get(p)
	}
	return values
}

// ParamStore 파라미터 파일 접근자. 마지막 읽기 이후 수정 여부를 알려준다.
type ParamStore struct {
	mu       sync.Mutex
	path     string
	lastRead time.Time
}

// NewParamStore 파라미터 저장소 생성
func NewParamStore(path string) *ParamStore {
	return &ParamStore{path: path}
}

// Path 파일 경로
func (s *ParamStore) Path() string { return s.path }

// EnsureDefaults 파일이 없으면 기본값으로 생성
func (s *ParamStore) EnsureDefaults() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return godotenv.Write(DefaultNavParams().Values(), s.path)
}

// Load 파일 전체를 읽어 파싱
func (s *ParamStore) Load() (*NavParams, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("param file %s: %w", s.path, err)
	}

	values, err := godotenv.Read(s.path)
	if err != nil {
		return nil, fmt.Errorf("param file %s: %w", s.path, err)
	}

	params, err := ParseNavParams(values)
	if err != nil {
		return nil, fmt.Errorf("param file %s: %w", s.path, err)
	}

	s.lastRead = info.ModTime()
	return params, nil
}

// Changed 마지막 Load 이후 파일이 수정되었는지
func (s *ParamStore) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return info.ModTime().After(s.lastRead)
}

// SetInt 정수 파라미터 하나를 파일에 기록
func (s *ParamStore) SetInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("param file %s: %w", s.path, err)
	}
	pending := before.ModTime().After(s.lastRead)

	values, err := godotenv.Read(s.path)
	if err != nil {
		return fmt.Errorf("param file %s: %w", s.path, err)
	}
	values[key] = strconv.Itoa(value)

	if err := godotenv.Write(values, s.path); err != nil {
		return fmt.Errorf("param file %s: %w", s.path, err)
	}

	// 자체 기록은 리로드 대상이 아님 (외부 수정이 대기 중이면 유지)
	if info, err := os.Stat(s.path); err == nil && !pending {
		s.lastRead = info.ModTime()
	}
	return nil
}

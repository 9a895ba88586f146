// internal/actuator/gpio.go - GPIO chardev 기반 방향타/모터 구동
package actuator

import (
	"fmt"
	"math"
	"sync"

	"boat-navigator/internal/utils"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOActuator 방향타 서보와 모터 ESC 를 소프트웨어 PWM 으로 구동
type GPIOActuator struct {
	mu      sync.Mutex
	chip    *gpiocdev.Chip
	rudder  *PwmLineOutput
	motor   *PwmLineOutput
	load    int
	running bool
}

// NewGPIOActuator chip 의 두 라인을 요청하고 PWM 루프 시작
func NewGPIOActuator(chipName string, rudderLine, motorLine int) (*GPIOActuator, error) {
	utils.Logger.Infof("🏗️ CREATING GPIO ACTUATOR - chip: %s, rudder: %d, motor: %d", chipName, rudderLine, motorLine)

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	rudder, err := NewPwmLineOutput(chip, rudderLine, ServoFrequency, AngleToPulse(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request rudder line %d: %w", rudderLine, err)
	}
	motor, err := NewPwmLineOutput(chip, motorLine, ServoFrequency, MinPulse)
	if err != nil {
		rudder.release()
		chip.Close()
		return nil, fmt.Errorf("request motor line %d: %w", motorLine, err)
	}

	go rudder.Start()
	go motor.Start()

	utils.Logger.Infof("✅ GPIO ACTUATOR CREATED")
	return newGPIOActuator(chip, rudder, motor), nil
}

func newGPIOActuator(chip *gpiocdev.Chip, rudder, motor *PwmLineOutput) *GPIOActuator {
	return &GPIOActuator{chip: chip, rudder: rudder, motor: motor}
}

// SetRudderAngle 방향타 각도 (deg)
func (a *GPIOActuator) SetRudderAngle(deg int) error {
	a.rudder.SetPulse(AngleToPulse(float64(deg)))
	return nil
}

// SetMotorLoad 모터 부하 (%). 정지 상태면 값만 기억한다
func (a *GPIOActuator) SetMotorLoad(pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("motor load %d out of range [0, 100]", pct)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.load = pct
	if a.running {
		a.motor.SetPulse(LoadToPulse(float64(pct)))
	}
	return nil
}

// StartMotor 기억된 부하로 ESC 구동
func (a *GPIOActuator) StartMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = true
	a.motor.SetPulse(LoadToPulse(float64(a.load)))
	return nil
}

// StopMotor ESC 를 최소 펄스로
func (a *GPIOActuator) StopMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
	a.motor.SetPulse(MinPulse)
	return nil
}

// Close PWM 정지, 라인/칩 해제
func (a *GPIOActuator) Close() error {
	var firstErr error
	for _, pwm := range []*PwmLineOutput{a.rudder, a.motor} {
		if err := pwm.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogActuator 하드웨어 없이 명령만 기록 (dry run)
type LogActuator struct {
	mu      sync.Mutex
	rudder  int
	load    int
	running bool
}

// NewLogActuator dry-run 액추에이터
func NewLogActuator() *LogActuator {
	utils.Logger.Infof("🏗️ CREATING DRY-RUN ACTUATOR")
	return &LogActuator{}
}

func (a *LogActuator) SetRudderAngle(deg int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if deg != a.rudder {
		utils.Logger.Debugf("🔧 RUDDER %d° (pulse %v)", deg, AngleToPulse(float64(deg)))
	}
	a.rudder = deg
	return nil
}

func (a *LogActuator) SetMotorLoad(pct int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pct != a.load {
		utils.Logger.Debugf("🔧 MOTOR LOAD %d%%", pct)
	}
	a.load = int(math.Max(0, math.Min(100, float64(pct))))
	return nil
}

func (a *LogActuator) StartMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = true
	utils.Logger.Infof("▶️ MOTOR STARTED")
	return nil
}

func (a *LogActuator) StopMotor() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
	utils.Logger.Infof("⏹️ MOTOR STOPPED")
	return nil
}

// Snapshot 마지막 명령 값
func (a *LogActuator) Snapshot() (rudder, load int, running bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rudder, a.load, a.running
}

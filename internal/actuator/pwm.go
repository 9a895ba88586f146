// internal/actuator/pwm.go - GPIO 라인 소프트웨어 PWM (서보/ESC)
package actuator

import (
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const (
	// ServoFrequency 서보 갱신 주파수 (Hz)
	ServoFrequency = 100

	MinPulse = 1000 * time.Microsecond
	MaxPulse = 2000 * time.Microsecond
)

// AngleToPulse 방향타 각도(deg, -90..90) -> 펄스 폭
func AngleToPulse(angle float64) time.Duration {
	us := 1000 + (angle+90)/180*1000
	return clampPulse(time.Duration(us * float64(time.Microsecond)))
}

// LoadToPulse 모터 부하(%) -> ESC 펄스 폭
func LoadToPulse(pct float64) time.Duration {
	us := 1000 + pct/100*1000
	return clampPulse(time.Duration(us * float64(time.Microsecond)))
}

func clampPulse(d time.Duration) time.Duration {
	if d < MinPulse {
		return MinPulse
	}
	if d > MaxPulse {
		return MaxPulse
	}
	return d
}

// outputLine gpiocdev.Line 중 PWM 에 필요한 부분
type outputLine interface {
	SetValue(value int) error
	Reconfigure(options ...gpiocdev.LineConfigOption) error
	Close() error
}

// PwmLineOutput 고정 주기 소프트웨어 PWM
type PwmLineOutput struct {
	mu       sync.Mutex
	line     outputLine
	period   time.Duration
	highTime time.Duration
	stopChan chan struct{}
	done     chan struct{}
}

// NewPwmLineOutput 출력 라인 요청 후 PWM 준비 (Start 로 시작)
func NewPwmLineOutput(chip *gpiocdev.Chip, lineNum int, frequency int, pulse time.Duration) (*PwmLineOutput, error) {
	line, err := chip.RequestLine(lineNum, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	return newPwm(line, frequency, pulse), nil
}

func newPwm(line outputLine, frequency int, pulse time.Duration) *PwmLineOutput {
	pwm := &PwmLineOutput{
		line:     line,
		period:   time.Second / time.Duration(frequency),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	pwm.SetPulse(pulse)
	pwm.line.SetValue(0)
	return pwm
}

// SetPulse high 구간 길이 변경 (주기 안으로 제한)
func (pwm *PwmLineOutput) SetPulse(d time.Duration) {
	if d < 0 {
		d = 0
	}
	if d > pwm.period {
		d = pwm.period
	}
	pwm.mu.Lock()
	pwm.highTime = d
	pwm.mu.Unlock()
}

// Pulse 현재 high 구간
func (pwm *PwmLineOutput) Pulse() time.Duration {
	pwm.mu.Lock()
	defer pwm.mu.Unlock()
	return pwm.highTime
}

// Start PWM 루프. 별도 고루틴에서 실행
func (pwm *PwmLineOutput) Start() {
	defer close(pwm.done)
	for {
		select {
		case <-pwm.stopChan:
			return
		default:
			high := pwm.Pulse()
			low := pwm.period - high
			if high > 0 {
				pwm.line.SetValue(1)
				time.Sleep(high)
			}
			if low > 0 {
				pwm.line.SetValue(0)
				time.Sleep(low)
			}
		}
	}
}

// Stop 루프 종료 후 라인을 입력으로 돌려놓고 해제
func (pwm *PwmLineOutput) Stop() error {
	close(pwm.stopChan)
	<-pwm.done
	return pwm.release()
}

// release Start 없이 라인만 해제
func (pwm *PwmLineOutput) release() error {
	pwm.line.SetValue(0)
	pwm.line.Reconfigure(gpiocdev.AsInput)
	return pwm.line.Close()
}

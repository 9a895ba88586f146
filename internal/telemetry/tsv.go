// internal/telemetry/tsv.go - 탭 구분 로그 파일 기록기
package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 로그 파일 이름
const (
	NavLogFile   = "nav.tsv"
	StateLogFile = "state.tsv"
	MeasLogFile  = "meas.tsv"
)

var (
	navHeader   = []string{"Time", "X", "Y", "LWP_X", "LWP_Y", "CWP_X", "CWP_Y", "Goal_X", "Goal_Y", "Look_ahead", "Turn-rate", "Rudder"}
	stateHeader = []string{"Time", "X", "Y", "V", "Heading", "Turn-rate", "X_p", "Y_p", "V_p", "Heading_p", "Turn-rate_p"}
	measHeader  = []string{"Time", "X_GPS", "Y_GPS", "V_GPS", "Heading_GPS", "Heading_compass", "Turn-rate_rudder", "V_load"}
)

// ErrNotStarted Begin 이전 기록 시도
var ErrNotStarted = errors.New("telemetry session not started")

type tsvFile struct {
	f *os.File
	w *bufio.Writer
}

func openTSV(path string, appendMode bool) (*tsvFile, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &tsvFile{f: f, w: bufio.NewWriter(f)}, nil
}

// row 한 줄 기록 후 flush (비정상 종료에도 로그 보존)
func (t *tsvFile) row(fields []string) error {
	if _, err := t.w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
		return err
	}
	return t.w.Flush()
}

func (t *tsvFile) line(s string) error {
	if _, err := t.w.WriteString(s + "\n"); err != nil {
		return err
	}
	return t.w.Flush()
}

func (t *tsvFile) close() error {
	if err := t.w.Flush(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}

// TSVRecorder nav.tsv / state.tsv / meas.tsv 기록기
type TSVRecorder struct {
	mu    sync.Mutex
	dir   string
	nav   *tsvFile
	state *tsvFile
	meas  *tsvFile
}

// NewTSVRecorder dir 아래에 로그 파일을 만든다
func NewTSVRecorder(dir string) *TSVRecorder {
	return &TSVRecorder{dir: dir}
}

// Begin 로그 파일을 열고 시작 시각과 컬럼 헤더를 기록
func (r *TSVRecorder) Begin(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked()
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", r.dir, err)
	}

	files := []struct {
		name   string
		dst    **tsvFile
		header []string
	}{
		{NavLogFile, &r.nav, navHeader},
		{StateLogFile, &r.state, stateHeader},
		{MeasLogFile, &r.meas, measHeader},
	}

	start := fmt.Sprintf("#Start time: %s", s.Start.Format("06-01-02 15:04:05.000"))
	for _, file := range files {
		t, err := openTSV(filepath.Join(r.dir, file.name), s.Append)
		if err != nil {
			r.closeLocked()
			return fmt.Errorf("open %s: %w", file.name, err)
		}
		*file.dst = t
		if err := t.line(start); err != nil {
			r.closeLocked()
			return err
		}
		if err := t.row(file.header); err != nil {
			r.closeLocked()
			return err
		}
	}
	return nil
}

// Nav 기하 한 줄
func (r *TSVRecorder) Nav(_ context.Context, rec NavRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nav == nil {
		return ErrNotStarted
	}
	return r.nav.row([]string{
		stamp(rec.Time),
		num(rec.Pos.X), num(rec.Pos.Y),
		num(rec.Lwp.X), num(rec.Lwp.Y),
		num(rec.Cwp.X), num(rec.Cwp.Y),
		num(rec.Goal.X), num(rec.Goal.Y),
		num(rec.LookAhead), num(rec.TurnRate), num(rec.Rudder),
	})
}

// State 추정/예측 상태 한 줄
func (r *TSVRecorder) State(_ context.Context, rec StateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return ErrNotStarted
	}
	fields := make([]string, 0, 1+2*StateDim)
	fields = append(fields, stamp(rec.Time))
	for _, v := range rec.State {
		fields = append(fields, num(v))
	}
	for _, v := range rec.Predicted {
		fields = append(fields, num(v))
	}
	return r.state.row(fields)
}

// Meas 측정 한 줄. 갱신 안 된 채널은 -999
func (r *TSVRecorder) Meas(_ context.Context, rec MeasRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meas == nil {
		return ErrNotStarted
	}
	fields := make([]string, 0, 1+MeasDim)
	fields = append(fields, stamp(rec.Time))
	for i, v := range rec.Values {
		if !rec.Fresh[i] {
			v = Missing
		}
		fields = append(fields, num(v))
	}
	return r.meas.row(fields)
}

// Close 파일 닫기
func (r *TSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *TSVRecorder) closeLocked() error {
	var errs []error
	for _, t := range []**tsvFile{&r.nav, &r.state, &r.meas} {
		if *t != nil {
			errs = append(errs, (*t).close())
			*t = nil
		}
	}
	return errors.Join(errs...)
}

func stamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

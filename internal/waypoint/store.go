// internal/waypoint/store.go - 웨이포인트 파일 (탭 구분, 헤더 1행)
package waypoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"boat-navigator/internal/geo"
)

// ErrNoWaypointFile 웨이포인트 파일 없음 (아직 경로가 없는 상태)
var ErrNoWaypointFile = errors.New("waypoint file not found")

const header = "X\tY"

// Store 웨이포인트 파일 저장소
type Store struct {
	path string
}

// NewStore 저장소 생성
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path 파일 경로
func (s *Store) Path() string { return s.path }

// Load 파일 전체를 읽는다
func (s *Store) Load() ([]geo.Point, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoWaypointFile, s.path)
		}
		return nil, err
	}
	defer f.Close()

	points, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("waypoint file %s: %w", s.path, err)
	}
	return points, nil
}

// WriteSurvey 측량 경로를 웨이포인트 파일로 저장
func (s *Store) WriteSurvey(points []geo.Point) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Write(f, points); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

// Parse 헤더 행은 건너뛴다. 빈 줄 무시
func Parse(r io.Reader) ([]geo.Point, error) {
	scanner := bufio.NewScanner(r)
	var points []geo.Point
	line := 0

	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected 2 tab separated columns, got %q", line, text)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad X: %w", line, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad Y: %w", line, err)
		}
		points = append(points, geo.Point{X: x, Y: y})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// Write 헤더와 함께 기록
func Write(w io.Writer, points []geo.Point) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, header); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n",
			strconv.FormatFloat(p.X, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

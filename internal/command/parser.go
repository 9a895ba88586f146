// internal/command/parser.go - "CMD;value" 형식 파서
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownCommand 정의되지 않은 명령
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidArgument 인자 형식 오류
	ErrInvalidArgument = errors.New("invalid command argument")
)

// Parse 명령 문자열 파싱. 예: "SET_RUDDER;-20", "ADD_WAYPOINT;18.07,59.33 18.08,59.34"
func Parse(raw string) (Command, error) {
	raw = strings.TrimSpace(raw)
	name, value, _ := strings.Cut(raw, ";")
	name = strings.ToUpper(strings.TrimSpace(name))
	value = strings.TrimSpace(value)

	t := Type(name)
	if alias, ok := aliases[name]; ok {
		t = alias
	}
	if !known[t] {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	cmd := Command{Type: t, Raw: raw}
	var err error
	switch t {
	case SetRudder:
		cmd.Angle, err = parseInt(value, -90, 90)
	case SetLoad:
		cmd.Load, err = parseInt(value, 0, 100)
	case StartMotor:
		cmd.Load = StartMotorLoad
	case StopMotor:
		cmd.Load = StopMotorLoad
	case AddWaypoint, AddSurvey:
		cmd.Positions, err = ParsePositions(value)
	}
	if err != nil {
		return Command{}, fmt.Errorf("%s: %w", t, err)
	}
	return cmd, nil
}

func parseInt(value string, lo, hi int) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: missing value", ErrInvalidArgument)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, value)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %d out of range [%d, %d]", ErrInvalidArgument, v, lo, hi)
	}
	return v, nil
}

// ParsePositions 공백 구분 "lon,lat" 목록
func ParsePositions(value string) ([]Position, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no positions", ErrInvalidArgument)
	}

	positions := make([]Position, 0, len(fields))
	for _, f := range fields {
		lonStr, latStr, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not lon,lat", ErrInvalidArgument, f)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad longitude %q", ErrInvalidArgument, lonStr)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad latitude %q", ErrInvalidArgument, latStr)
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("%w: %q out of range", ErrInvalidArgument, f)
		}
		positions = append(positions, Position{Lon: lon, Lat: lat})
	}
	return positions, nil
}

package workflow

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Boundary names one of the two selector fields.
type Boundary string

const (
	BoundaryStart Boundary = "start"
	BoundaryEnd   Boundary = "end"
)

var ErrUnknownBoundary = errors.New("boundary must be start or end")

func ParseBoundary(s string) (Boundary, error) {
	switch b := Boundary(strings.ToLower(strings.TrimSpace(s))); b {
	case BoundaryStart, BoundaryEnd:
		return b, nil
	}
	return "", ErrUnknownBoundary
}

// Selector holds the start and end fields as the user typed them. They are
// only interpreted when a range is requested.
type Selector struct {
	start string
	end   string
}

func (s *Selector) Set(b Boundary, text string) error {
	switch b {
	case BoundaryStart:
		s.start = strings.TrimSpace(text)
	case BoundaryEnd:
		s.end = strings.TrimSpace(text)
	default:
		return ErrUnknownBoundary
	}
	return nil
}

// Capture fills a field from a playback position, truncated to whole
// seconds. Positions that are negative or not finite are ignored.
func (s *Selector) Capture(b Boundary, position float64) error {
	if !isFinite(position) || position < 0 {
		return nil
	}
	return s.Set(b, strconv.FormatInt(int64(math.Floor(position)), 10))
}

func (s *Selector) Start() string { return s.start }
func (s *Selector) End() string   { return s.end }

// Range returns the clip the fields describe, if they describe a valid one.
func (s *Selector) Range() (ClipRange, bool) {
	start, err := strconv.ParseFloat(s.start, 64)
	if err != nil {
		return ClipRange{}, false
	}
	end, err := strconv.ParseFloat(s.end, 64)
	if err != nil {
		return ClipRange{}, false
	}
	r, err := NewClipRange(start, end)
	return r, err == nil
}

func (s *Selector) Reset() {
	s.start, s.end = "", ""
}

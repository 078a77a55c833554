package workflow

import (
	"math"
	"testing"
)

func TestSelector_Range(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       ClipRange
		ok         bool
	}{
		{"integers", "0", "5", ClipRange{0, 5}, true},
		{"decimals", "1.5", "2.75", ClipRange{1.5, 2.75}, true},
		{"padded", " 3 ", " 9 ", ClipRange{3, 9}, true},
		{"end beyond any duration", "0", "99999", ClipRange{0, 99999}, true},
		{"empty start", "", "5", ClipRange{}, false},
		{"empty end", "0", "", ClipRange{}, false},
		{"equal", "4", "4", ClipRange{}, false},
		{"reversed", "9", "3", ClipRange{}, false},
		{"negative", "-2", "3", ClipRange{}, false},
		{"text", "abc", "5", ClipRange{}, false},
		{"nan", "NaN", "5", ClipRange{}, false},
		{"inf", "0", "Inf", ClipRange{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Selector
			s.Set(BoundaryStart, tt.start)
			s.Set(BoundaryEnd, tt.end)
			got, ok := s.Range()
			if ok != tt.ok {
				t.Fatalf("Range() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Range() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelector_CaptureFloorsPosition(t *testing.T) {
	tests := []struct {
		position float64
		want     string
	}{
		{0, "0"},
		{4.999, "4"},
		{12.0, "12"},
		{61.5, "61"},
	}
	for _, tt := range tests {
		var s Selector
		if err := s.Capture(BoundaryStart, tt.position); err != nil {
			t.Fatalf("Capture() error: %v", err)
		}
		if s.Start() != tt.want {
			t.Errorf("Capture(%v) start = %q, want %q", tt.position, s.Start(), tt.want)
		}
	}
}

func TestSelector_CaptureIgnoresBadPositions(t *testing.T) {
	var s Selector
	s.Set(BoundaryEnd, "7")
	for _, p := range []float64{-1, math.NaN(), math.Inf(1)} {
		s.Capture(BoundaryEnd, p)
	}
	if s.End() != "7" {
		t.Errorf("End() = %q, want unchanged 7", s.End())
	}
}

func TestSelector_UnknownBoundary(t *testing.T) {
	var s Selector
	if err := s.Set(Boundary("middle"), "1"); err != ErrUnknownBoundary {
		t.Errorf("Set() error = %v, want ErrUnknownBoundary", err)
	}
}

func TestSelector_Reset(t *testing.T) {
	var s Selector
	s.Set(BoundaryStart, "1")
	s.Set(BoundaryEnd, "2")
	s.Reset()
	if s.Start() != "" || s.End() != "" {
		t.Errorf("after Reset() = %q/%q", s.Start(), s.End())
	}
	if _, ok := s.Range(); ok {
		t.Error("Range() ok after Reset()")
	}
}

func TestParseBoundary(t *testing.T) {
	tests := []struct {
		in      string
		want    Boundary
		wantErr bool
	}{
		{"start", BoundaryStart, false},
		{"END", BoundaryEnd, false},
		{" start ", BoundaryStart, false},
		{"", "", true},
		{"middle", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBoundary(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBoundary(%q) = %q, %v", tt.in, got, err)
		}
	}
}

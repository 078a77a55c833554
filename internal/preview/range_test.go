package preview

import (
	"errors"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantFirst int64
		wantLast  int64
		wantNil   bool
		wantErr   error
	}{
		{"empty header", "", 1000, 0, 0, true, nil},
		{"full range", "bytes=0-999", 1000, 0, 999, false, nil},
		{"open ended", "bytes=500-", 1000, 500, 999, false, nil},
		{"suffix", "bytes=-500", 1000, 500, 999, false, nil},
		{"single byte", "bytes=0-0", 1000, 0, 0, false, nil},
		{"last past end clamped", "bytes=0-2000", 1000, 0, 999, false, nil},
		{"suffix larger than file", "bytes=-2000", 500, 0, 499, false, nil},
		{"multi span takes first", "bytes=0-99, 200-299", 1000, 0, 99, false, nil},

		{"first at size", "bytes=1000-", 1000, 0, 0, false, ErrUnsatisfiable},
		{"reversed", "bytes=50-10", 1000, 0, 0, false, ErrUnsatisfiable},
		{"no unit", "0-100", 1000, 0, 0, false, ErrMalformedRange},
		{"wrong unit", "chars=0-100", 1000, 0, 0, false, ErrMalformedRange},
		{"no dash", "bytes=100", 1000, 0, 0, false, ErrMalformedRange},
		{"bad first", "bytes=abc-100", 1000, 0, 0, false, ErrMalformedRange},
		{"bad last", "bytes=0-abc", 1000, 0, 0, false, ErrMalformedRange},
		{"zero suffix", "bytes=-0", 1000, 0, 0, false, ErrMalformedRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseRange() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange() unexpected error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseRange() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("ParseRange() = nil, want non-nil")
			}
			if got.First != tt.wantFirst || got.Last != tt.wantLast {
				t.Errorf("ParseRange() = {%d, %d}, want {%d, %d}", got.First, got.Last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestByteRange_LengthAndHeader(t *testing.T) {
	tests := []struct {
		br         ByteRange
		size       int64
		wantLen    int64
		wantHeader string
	}{
		{ByteRange{0, 99}, 1000, 100, "bytes 0-99/1000"},
		{ByteRange{0, 0}, 1, 1, "bytes 0-0/1"},
		{ByteRange{500, 999}, 1000, 500, "bytes 500-999/1000"},
	}

	for _, tt := range tests {
		if got := tt.br.Length(); got != tt.wantLen {
			t.Errorf("Length() = %d, want %d", got, tt.wantLen)
		}
		if got := tt.br.Header(tt.size); got != tt.wantHeader {
			t.Errorf("Header() = %s, want %s", got, tt.wantHeader)
		}
	}
}

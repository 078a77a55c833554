package workflow

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustRange(t *testing.T, start, end float64) ClipRange {
	t.Helper()
	r, err := NewClipRange(start, end)
	if err != nil {
		t.Fatalf("NewClipRange(%v, %v): %v", start, end, err)
	}
	return r
}

func TestNewClipRange(t *testing.T) {
	inf := math.Inf(1)
	nan := math.NaN()

	tests := []struct {
		name       string
		start, end float64
		wantErr    bool
	}{
		{"zero start", 0, 5, false},
		{"fractional", 1.5, 2.25, false},
		{"past any duration", 10, 100000, false},
		{"equal", 5, 5, true},
		{"reversed", 10, 5, true},
		{"negative start", -1, 5, true},
		{"nan start", nan, 5, true},
		{"nan end", 0, nan, true},
		{"infinite end", 0, inf, true},
		{"negative infinite start", -inf, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClipRange(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClipRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidRange {
				t.Errorf("error = %v, want ErrInvalidRange", err)
			}
		})
	}
}

func TestQueue_AppendValid(t *testing.T) {
	valid := [][2]float64{{0, 5}, {10, 20}, {0, 0.001}, {3, 4}, {3, 4}, {2, 8}}

	var q Queue
	for i, p := range valid {
		r := mustRange(t, p[0], p[1])
		if !q.Append(r) {
			t.Fatalf("Append(%v) refused", r)
		}
		if q.Len() != i+1 {
			t.Fatalf("Len() = %d, want %d", q.Len(), i+1)
		}
		snap := q.Snapshot()
		if snap[len(snap)-1] != r {
			t.Fatalf("last = %v, want %v", snap[len(snap)-1], r)
		}
	}
}

func TestQueue_AppendInvalidLeavesQueueUnchanged(t *testing.T) {
	invalid := []ClipRange{
		{Start: 5, End: 5},
		{Start: 20, End: 10},
		{Start: -1, End: 3},
		{Start: math.NaN(), End: 3},
		{Start: 0, End: math.Inf(1)},
	}

	var q Queue
	q.Append(mustRange(t, 1, 2))
	before := q.Snapshot()

	for _, r := range invalid {
		if q.Append(r) {
			t.Errorf("Append(%v) accepted", r)
		}
		if diff := cmp.Diff(before, q.Snapshot()); diff != "" {
			t.Errorf("queue changed after Append(%v) (-want +got):\n%s", r, diff)
		}
	}
}

func TestQueue_RemoveAt(t *testing.T) {
	a, b, c, d := mustRange(t, 0, 1), mustRange(t, 1, 2), mustRange(t, 2, 3), mustRange(t, 3, 4)

	tests := []struct {
		name    string
		index   int
		want    []ClipRange
		removed bool
	}{
		{"first", 0, []ClipRange{b, c, d}, true},
		{"middle", 2, []ClipRange{a, b, d}, true},
		{"last", 3, []ClipRange{a, b, c}, true},
		{"negative", -1, []ClipRange{a, b, c, d}, false},
		{"equal to length", 4, []ClipRange{a, b, c, d}, false},
		{"far out", 99, []ClipRange{a, b, c, d}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Queue
			for _, r := range []ClipRange{a, b, c, d} {
				q.Append(r)
			}
			if got := q.RemoveAt(tt.index); got != tt.removed {
				t.Errorf("RemoveAt(%d) = %v, want %v", tt.index, got, tt.removed)
			}
			if diff := cmp.Diff(tt.want, q.Snapshot()); diff != "" {
				t.Errorf("queue mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueue_RemoveAtOnEmpty(t *testing.T) {
	var q Queue
	if q.RemoveAt(0) {
		t.Error("RemoveAt(0) on empty queue reported a removal")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d", q.Len())
	}
}

func TestQueue_Clear(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		var q Queue
		for i := 0; i < n; i++ {
			q.Append(mustRange(t, float64(i), float64(i+1)))
		}
		q.Clear()
		if q.Len() != 0 {
			t.Errorf("Len() after Clear() on %d items = %d", n, q.Len())
		}
	}
}

func TestQueue_SnapshotIsACopy(t *testing.T) {
	var q Queue
	q.Append(mustRange(t, 0, 5))
	snap := q.Snapshot()
	snap[0].End = 99
	q.Append(mustRange(t, 10, 20))

	if got := q.Snapshot()[0]; got.End != 5 {
		t.Errorf("queue saw snapshot mutation: %v", got)
	}
	if len(snap) != 1 {
		t.Errorf("snapshot saw queue mutation: len %d", len(snap))
	}
}

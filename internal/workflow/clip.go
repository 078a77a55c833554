// Package workflow implements the trim session: choosing a source file,
// marking clip boundaries, queueing clips and submitting them for trimming.
package workflow

import (
	"encoding/json"
	"errors"
	"math"
)

var (
	ErrInvalidRange  = errors.New("clip range must satisfy 0 <= start < end with finite bounds")
	ErrTrimDisabled  = errors.New("trim needs an uploaded source and at least one queued clip")
	ErrSubmitPending = errors.New("a trim request is already in flight")
	ErrNoFile        = errors.New("no file selected")
)

// ClipRange is a span of the source in seconds.
type ClipRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func NewClipRange(start, end float64) (ClipRange, error) {
	r := ClipRange{Start: start, End: end}
	if !r.Valid() {
		return ClipRange{}, ErrInvalidRange
	}
	return r, nil
}

func (r ClipRange) Valid() bool {
	return isFinite(r.Start) && isFinite(r.End) && r.Start >= 0 && r.Start < r.End
}

func (r ClipRange) Length() float64 {
	return r.End - r.Start
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SourceVideo describes the uploaded asset. An empty SourceID means the
// upload has not succeeded (or was never attempted).
type SourceVideo struct {
	SourceID        string  `json:"source_id,omitempty"`
	OriginalName    string  `json:"original_name,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	DurationKnown   bool    `json:"duration_known"`
}

// TrimResult holds the remote descriptors in the order they were returned.
type TrimResult []json.RawMessage

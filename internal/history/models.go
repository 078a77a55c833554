// Package history keeps a local record of trim submissions.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Trim struct {
	ID           string          `json:"id"`
	SourceID     string          `json:"source_id"`
	OriginalName string          `json:"original_name,omitempty"`
	Status       string          `json:"status"`
	ClipCount    int             `json:"clip_count"`
	Request      json.RawMessage `json:"request"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewTrim builds a pending record for a request about to be sent.
func NewTrim(sourceID, originalName string, clipCount int, request any) (*Trim, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal trim request: %w", err)
	}
	now := time.Now().UTC()
	return &Trim{
		ID:           uuid.NewString(),
		SourceID:     sourceID,
		OriginalName: originalName,
		Status:       StatusPending,
		ClipCount:    clipCount,
		Request:      raw,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Package handoff carries the trim result from the clip workflow to the
// scheduling stage through a session-scoped key/value store.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/clipdesk/clipdesk-agent/internal/store"
)

// DefaultKey is the well-known entry the scheduling stage reads.
const DefaultKey = "trimmedClips"

// Payload is the stored handoff value. Clips are the remote service's
// descriptors, kept byte for byte.
type Payload struct {
	Source string            `json:"source"`
	Clips  []json.RawMessage `json:"clips"`
}

type Handoff struct {
	kv     store.KV
	key    string
	logger *slog.Logger
}

// New returns a Handoff over kv. An empty key falls back to DefaultKey.
func New(kv store.KV, key string, logger *slog.Logger) *Handoff {
	if key == "" {
		key = DefaultKey
	}
	return &Handoff{kv: kv, key: key, logger: logger}
}

func (h *Handoff) Key() string { return h.key }

// Write replaces whatever is stored under the key.
func (h *Handoff) Write(ctx context.Context, p Payload) error {
	if p.Clips == nil {
		p.Clips = []json.RawMessage{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal handoff: %w", err)
	}
	if err := h.kv.Set(ctx, h.key, string(data)); err != nil {
		return fmt.Errorf("store handoff: %w", err)
	}
	h.logger.Info("handoff written", "key", h.key, "source_id", p.Source, "clips", len(p.Clips))
	return nil
}

// Read returns the stored payload. A missing entry is ok=false with no
// error; so is an entry that no longer decodes, which is logged and
// otherwise treated as if nothing had been written.
func (h *Handoff) Read(ctx context.Context) (Payload, bool, error) {
	raw, ok, err := h.kv.Get(ctx, h.key)
	if err != nil {
		return Payload{}, false, fmt.Errorf("load handoff: %w", err)
	}
	if !ok {
		return Payload{}, false, nil
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		h.logger.Warn("ignoring undecodable handoff entry", "key", h.key, "error", err)
		return Payload{}, false, nil
	}
	if p.Clips == nil {
		p.Clips = []json.RawMessage{}
	}
	return p, true, nil
}

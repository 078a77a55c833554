package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clipdesk/clipdesk-agent/internal/handoff"
	"github.com/clipdesk/clipdesk-agent/internal/remote"
)

// CanSubmit is the trim gate: an uploaded source and a non-empty queue.
func CanSubmit(sourceID string, queueLen int) bool {
	return sourceID != "" && queueLen > 0
}

// Orchestrator sends the queued clips as one trim request and publishes
// the result for the scheduling stage.
type Orchestrator struct {
	media   remote.MediaService
	handoff *handoff.Handoff
	logger  *slog.Logger
}

func NewOrchestrator(media remote.MediaService, h *handoff.Handoff, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{media: media, handoff: h, logger: logger}
}

// TrimRequest builds the wire request for clips in queue order.
func TrimRequest(sourceID string, clips []ClipRange) remote.TrimRequest {
	req := remote.TrimRequest{
		SourcePath: sourceID,
		Clips:      make([]remote.TrimClip, len(clips)),
	}
	for i, c := range clips {
		req.Clips[i] = remote.TrimClip{Start: c.Start, End: c.End}
	}
	return req
}

// Submit issues exactly one trim request. The caller's clips and source
// are never modified. A failed handoff write is logged but does not undo
// a trim the remote service already performed.
func (o *Orchestrator) Submit(ctx context.Context, sourceID string, clips []ClipRange) (TrimResult, error) {
	if !CanSubmit(sourceID, len(clips)) {
		return nil, ErrTrimDisabled
	}

	resp, err := o.media.Trim(ctx, TrimRequest(sourceID, clips))
	if err != nil {
		return nil, fmt.Errorf("trim: %w", err)
	}
	result := TrimResult(resp.Clips)
	if result == nil {
		result = TrimResult{}
	}

	if err := o.handoff.Write(ctx, handoff.Payload{Source: sourceID, Clips: result}); err != nil {
		o.logger.Warn("handoff write failed", "source_id", sourceID, "error", err)
	}
	return result, nil
}

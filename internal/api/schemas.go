package api

import (
	"github.com/clipdesk/clipdesk-agent/internal/chat"
	"github.com/clipdesk/clipdesk-agent/internal/handoff"
	"github.com/clipdesk/clipdesk-agent/internal/history"
	"github.com/clipdesk/clipdesk-agent/internal/workflow"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type SelectFileRequest struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// BoundariesRequest carries raw field text. Absent fields are left alone.
type BoundariesRequest struct {
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
}

type CaptureRequest struct {
	Field    string  `json:"field"`
	Position float64 `json:"position"`
}

type AddClipResponse struct {
	Clip  workflow.ClipRange   `json:"clip"`
	Clips []workflow.ClipRange `json:"clips"`
}

type RemoveClipResponse struct {
	Removed bool                 `json:"removed"`
	Clips   []workflow.ClipRange `json:"clips"`
}

type TrimResponse struct {
	Clips workflow.TrimResult `json:"clips"`
	Stage workflow.Stage      `json:"stage"`
}

type HandoffResponse struct {
	Present bool             `json:"present"`
	Payload *handoff.Payload `json:"payload,omitempty"`
}

type HistoryResponse struct {
	Trims []*history.Trim `json:"trims"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatLogResponse struct {
	Entries []chat.Entry `json:"entries"`
}

type StoryRequest struct {
	Text   string `json:"text"`
	Format string `json:"format,omitempty"`
}

type StoryResponse struct {
	Story string `json:"story"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

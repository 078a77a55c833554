// Package remote talks to the video service that stores uploaded sources and
// cuts clips, and to the two text collaborators hosted by the same backend.
package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
)

// MediaService is the upload/trim half of the remote backend.
type MediaService interface {
	// UploadSource sends one file as a multipart body and returns the opaque
	// source identifier the service assigned to it.
	UploadSource(ctx context.Context, filename string, body io.Reader) (*UploadResult, error)
	// Trim asks the service to cut every clip in one batched request.
	Trim(ctx context.Context, req TrimRequest) (*TrimResponse, error)
}

// Assistant is the text-completion and story-generation collaborator.
type Assistant interface {
	Chat(ctx context.Context, message string) (*ChatResponse, error)
	GenerateStory(ctx context.Context, req StoryRequest) (*StoryResponse, error)
}

type Client interface {
	MediaService
	Assistant
}

// UploadResult is the response from POST /video/upload.
type UploadResult struct {
	SourcePath string `json:"source_path"`
}

// TrimClip is one requested boundary pair, in seconds.
type TrimClip struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TrimRequest is the request body sent to POST /video/trim.
type TrimRequest struct {
	SourcePath string     `json:"source_path"`
	Clips      []TrimClip `json:"clips"`
}

// TrimResponse is the response from POST /video/trim. Clip descriptors are
// passed through untouched.
type TrimResponse struct {
	Clips []json.RawMessage `json:"clips"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type StoryRequest struct {
	Text   string `json:"text"`
	Format string `json:"format,omitempty"`
}

type StoryResponse struct {
	Story string `json:"story"`
}

// StubClient answers locally without a backend. Uploads resolve to the file
// name and trims echo the requested ranges.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) UploadSource(ctx context.Context, filename string, body io.Reader) (*UploadResult, error) {
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("remote stub: upload requested", "filename", filename, "bytes", n)
	return &UploadResult{SourcePath: "stub/" + filename}, nil
}

func (c *StubClient) Trim(ctx context.Context, req TrimRequest) (*TrimResponse, error) {
	c.logger.Info("remote stub: trim requested", "source_path", req.SourcePath, "clip_count", len(req.Clips))
	resp := &TrimResponse{Clips: make([]json.RawMessage, 0, len(req.Clips))}
	for _, clip := range req.Clips {
		raw, err := json.Marshal(clip)
		if err != nil {
			return nil, err
		}
		resp.Clips = append(resp.Clips, raw)
	}
	return resp, nil
}

func (c *StubClient) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	c.logger.Info("remote stub: chat requested")
	return &ChatResponse{Reply: ""}, nil
}

func (c *StubClient) GenerateStory(ctx context.Context, req StoryRequest) (*StoryResponse, error) {
	c.logger.Info("remote stub: story requested", "format", req.Format)
	return &StoryResponse{Story: ""}, nil
}

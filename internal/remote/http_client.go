package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	errorBodyLimit    = 4096
	responseBodyLimit = 8 << 20
)

// RequestError is a non-2xx answer from the remote service.
type RequestError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *RequestError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient is the real client for the video backend.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient builds a client. A zero timeout leaves requests unbounded;
// callers bound them through the context when they need to.
func NewHTTPClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *HTTPClient) UploadSource(ctx context.Context, filename string, body io.Reader) (*UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// Stream the file into the request instead of buffering it.
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filename))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/video/upload", pr)
	defer pr.Close()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("uploading source to remote", "filename", filepath.Base(filename))

	var result UploadResult
	if err := c.do(req, "upload", &result); err != nil {
		return nil, err
	}
	if result.SourcePath == "" {
		return nil, fmt.Errorf("upload: response missing source_path")
	}

	c.logger.Info("upload succeeded", "source_path", result.SourcePath)
	return &result, nil
}

func (c *HTTPClient) Trim(ctx context.Context, trimReq TrimRequest) (*TrimResponse, error) {
	var result TrimResponse
	if err := c.postJSON(ctx, "/video/trim", "trim", trimReq, &result); err != nil {
		return nil, err
	}
	if result.Clips == nil {
		result.Clips = []json.RawMessage{}
	}

	c.logger.Info("trim succeeded",
		"source_path", trimReq.SourcePath,
		"requested", len(trimReq.Clips),
		"returned", len(result.Clips),
	)
	return &result, nil
}

func (c *HTTPClient) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	var result ChatResponse
	if err := c.postJSON(ctx, "/chat", "chat", ChatRequest{Message: message}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) GenerateStory(ctx context.Context, storyReq StoryRequest) (*StoryResponse, error) {
	var result StoryResponse
	if err := c.postJSON(ctx, "/api/story/generate", "story", storyReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path, op string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("remote request", "op", op, "path", path, "body_bytes", len(body))
	return c.do(req, op, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Clipdesk-Request-Id", uuid.NewString())
	return req, nil
}

func (c *HTTPClient) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", op, err)
	}
	return nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/chat"
	"github.com/clipdesk/clipdesk-agent/internal/handoff"
	"github.com/clipdesk/clipdesk-agent/internal/logging"
	"github.com/clipdesk/clipdesk-agent/internal/preview"
	"github.com/clipdesk/clipdesk-agent/internal/remote"
	"github.com/clipdesk/clipdesk-agent/internal/store"
	"github.com/clipdesk/clipdesk-agent/internal/workflow"
)

const testToken = "test-token-0123456789"

type fakeMedia struct {
	mu        sync.Mutex
	uploadErr error
	trimErr   error
	trims     []remote.TrimRequest
}

func (f *fakeMedia) UploadSource(_ context.Context, filename string, body io.Reader) (*remote.UploadResult, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &remote.UploadResult{SourcePath: "src-" + filename}, nil
}

func (f *fakeMedia) Trim(_ context.Context, req remote.TrimRequest) (*remote.TrimResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trims = append(f.trims, req)
	if f.trimErr != nil {
		return nil, f.trimErr
	}
	resp := &remote.TrimResponse{}
	for _, c := range req.Clips {
		raw, _ := json.Marshal(c)
		resp.Clips = append(resp.Clips, raw)
	}
	return resp, nil
}

func (f *fakeMedia) trimRequests() []remote.TrimRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.TrimRequest(nil), f.trims...)
}

type fakeAssistant struct {
	reply string
	story string
	err   error
}

func (f *fakeAssistant) Chat(context.Context, string) (*remote.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &remote.ChatResponse{Reply: f.reply}, nil
}

func (f *fakeAssistant) GenerateStory(context.Context, remote.StoryRequest) (*remote.StoryResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &remote.StoryResponse{Story: f.story}, nil
}

type testEnv struct {
	cfg       ServerConfig
	router    http.Handler
	session   *workflow.Session
	media     *fakeMedia
	assistant *fakeAssistant
}

func newTestEnv(t *testing.T, mutate ...func(*ServerConfig)) *testEnv {
	t.Helper()
	logger := logging.Discard()

	tokens := store.NewMemory()
	if err := tokens.Set(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatalf("set token: %v", err)
	}

	media := &fakeMedia{}
	assistant := &fakeAssistant{reply: "sure"}
	previews := preview.NewRegistry(logger)
	h := handoff.New(store.NewMemory(), "", logger)
	session := workflow.NewSession(workflow.Options{
		Media:    media,
		Handoff:  h,
		Previews: previews,
		Logger:   logger,
	})
	t.Cleanup(session.Close)

	cfg := ServerConfig{
		Session:   session,
		Previews:  previews,
		Handoff:   h,
		Chat:      chat.NewService(assistant, logger),
		Tokens:    tokens,
		ExportDir: t.TempDir(),
		Logger:    logger,
		StartTime: time.Now(),
		DeviceID:  "test-device",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	return &testEnv{
		cfg:       cfg,
		router:    NewRouter(cfg),
		session:   session,
		media:     media,
		assistant: assistant,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal error: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// selectReadySource picks a fresh local file and waits for its upload.
func (e *testEnv) selectReadySource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("0123456789abcdef"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	rr := e.do(t, http.MethodPost, "/session/file", SelectFileRequest{Path: path})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("select status = %d, body = %s", rr.Code, rr.Body.String())
	}
	waitFor(t, "upload", func() bool { return e.session.State().Source.SourceID != "" })
	return path
}

func (e *testEnv) queueClip(t *testing.T, start, end string) {
	t.Helper()
	if rr := e.do(t, http.MethodPut, "/session/boundaries", BoundariesRequest{Start: &start, End: &end}); rr.Code != http.StatusOK {
		t.Fatalf("boundaries status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr := e.do(t, http.MethodPost, "/session/clips", nil); rr.Code != http.StatusCreated {
		t.Fatalf("add clip status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

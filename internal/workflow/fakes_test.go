package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/remote"
	"github.com/clipdesk/clipdesk-agent/internal/watcher"
)

// fakeMedia records calls. Uploads of a name listed in gates block until
// that gate is closed.
type fakeMedia struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	uploadErr map[string]error
	uploads   []string
	trims     []remote.TrimRequest
	trimErr   error
	trimGate  chan struct{}
	trimClips []json.RawMessage
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		gates:     make(map[string]chan struct{}),
		uploadErr: make(map[string]error),
	}
}

func (f *fakeMedia) gate(name string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[name] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeMedia) UploadSource(ctx context.Context, filename string, body io.Reader) (*remote.UploadResult, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, filename)
	gate := f.gates[filename]
	err := f.uploadErr[filename]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &remote.UploadResult{SourcePath: "id-" + filename}, nil
}

func (f *fakeMedia) Trim(ctx context.Context, req remote.TrimRequest) (*remote.TrimResponse, error) {
	f.mu.Lock()
	f.trims = append(f.trims, req)
	gate, err, clips := f.trimGate, f.trimErr, f.trimClips
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if clips == nil {
		for _, c := range req.Clips {
			raw, _ := json.Marshal(c)
			clips = append(clips, raw)
		}
	}
	return &remote.TrimResponse{Clips: clips}, nil
}

func (f *fakeMedia) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeMedia) trimRequests() []remote.TrimRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remote.TrimRequest(nil), f.trims...)
}

var errBackend = errors.New("backend said no")

type fakeProber struct {
	seconds float64
	err     error
}

func (p fakeProber) Duration(context.Context, string) (float64, error) {
	return p.seconds, p.err
}

// fakeWatcher hands the registered callback to the test.
type fakeWatcher struct {
	mu       sync.Mutex
	callback func(string, watcher.EventType)
	watching string
	stops    int
}

func (w *fakeWatcher) Watch(_ context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watching = path
	return nil
}

func (w *fakeWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watching = ""
	w.stops++
	return nil
}

func (w *fakeWatcher) target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watching
}

func (w *fakeWatcher) OnChange(cb func(string, watcher.EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = cb
}

func (w *fakeWatcher) fire(path string, e watcher.EventType) {
	w.mu.Lock()
	cb := w.callback
	w.mu.Unlock()
	cb(path, e)
}

func writeSource(t *testing.T, name string) LocalFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("video bytes for "+name), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return LocalFile{Path: path}
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

package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipdesk/clipdesk-agent/internal/logging"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestRegistry_AcquireAndRelease(t *testing.T) {
	reg := NewRegistry(logging.Discard())
	path := writeTempFile(t, "a.mp4", "aaaa")

	h, err := reg.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !strings.HasPrefix(h.URI(), PathPrefix) {
		t.Errorf("URI() = %q, want prefix %q", h.URI(), PathPrefix)
	}
	if got, ok := reg.Lookup(h.Token()); !ok || got != path {
		t.Fatalf("Lookup() = %q, %v", got, ok)
	}

	if !h.Release() {
		t.Fatal("first Release() should report true")
	}
	if h.Release() {
		t.Fatal("second Release() should be a no-op")
	}
	if !h.Released() {
		t.Error("Released() = false after release")
	}
	if reg.Releases() != 1 {
		t.Errorf("Releases() = %d, want 1", reg.Releases())
	}
	if reg.Active() != 0 {
		t.Errorf("Active() = %d, want 0", reg.Active())
	}
}

func TestRegistry_AcquireRejects(t *testing.T) {
	reg := NewRegistry(logging.Discard())

	if _, err := reg.Acquire(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := reg.Acquire(t.TempDir()); err != ErrNotRegularFile {
		t.Errorf("directory error = %v, want ErrNotRegularFile", err)
	}
	if reg.Active() != 0 {
		t.Errorf("Active() = %d after failed acquires", reg.Active())
	}
}

func TestResource_ReplaceReleasesPriorExactlyOnce(t *testing.T) {
	reg := NewRegistry(logging.Discard())
	res := NewResource(reg)

	a, err := res.Replace(writeTempFile(t, "a.mp4", "a"))
	if err != nil {
		t.Fatalf("Replace(a) error: %v", err)
	}
	b, err := res.Replace(writeTempFile(t, "b.mp4", "b"))
	if err != nil {
		t.Fatalf("Replace(b) error: %v", err)
	}

	if !a.Released() {
		t.Fatal("a should be released after selecting b")
	}
	if b.Released() {
		t.Fatal("b should still be live")
	}
	if reg.Releases() != 1 {
		t.Fatalf("Releases() = %d, want exactly 1", reg.Releases())
	}
	if res.URI() != b.URI() {
		t.Errorf("URI() = %q, want b's %q", res.URI(), b.URI())
	}
	if a.Release() {
		t.Error("a was released a second time")
	}

	res.Release()
	res.Release()
	if reg.Releases() != 2 {
		t.Errorf("Releases() = %d after teardown, want 2", reg.Releases())
	}
	if res.URI() != "" {
		t.Errorf("URI() = %q after release, want empty", res.URI())
	}
}

func TestResource_ReplaceFailureStillReleasesPrior(t *testing.T) {
	reg := NewRegistry(logging.Discard())
	res := NewResource(reg)

	a, err := res.Replace(writeTempFile(t, "a.mp4", "a"))
	if err != nil {
		t.Fatalf("Replace(a) error: %v", err)
	}
	if _, err := res.Replace(filepath.Join(t.TempDir(), "gone.mp4")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if !a.Released() {
		t.Error("prior handle must be released even if the new one fails")
	}
	if res.URI() != "" {
		t.Errorf("URI() = %q, want empty", res.URI())
	}
}

func TestServeHandle(t *testing.T) {
	reg := NewRegistry(logging.Discard())
	h, err := reg.Acquire(writeTempFile(t, "clip.mp4", "0123456789"))
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	tests := []struct {
		name       string
		token      string
		rangeHdr   string
		wantStatus int
		wantBody   string
	}{
		{"full file", h.Token(), "", http.StatusOK, "0123456789"},
		{"partial", h.Token(), "bytes=2-5", http.StatusPartialContent, "2345"},
		{"malformed range ignored", h.Token(), "items=1-2", http.StatusOK, "0123456789"},
		{"unsatisfiable", h.Token(), "bytes=50-", http.StatusRequestedRangeNotSatisfiable, ""},
		{"unknown token", "nope", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, PathPrefix+tt.token, nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			rec := httptest.NewRecorder()

			if err := reg.ServeHandle(rec, req, tt.token); err != nil {
				t.Fatalf("ServeHandle() error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(rec.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
		})
	}
}

func TestServeHandle_ReleasedIsNotFound(t *testing.T) {
	reg := NewRegistry(logging.Discard())
	h, err := reg.Acquire(writeTempFile(t, "clip.mp4", "data"))
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	h.Release()

	rec := httptest.NewRecorder()
	if err := reg.ServeHandle(rec, httptest.NewRequest(http.MethodGet, h.URI(), nil), h.Token()); err != nil {
		t.Fatalf("ServeHandle() error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

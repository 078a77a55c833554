// Package preview hands out revocable URIs for local media files and serves
// them to a media element with byte-range support.
package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/clipdesk/clipdesk-agent/internal/metrics"
)

// PathPrefix is where preview URIs are mounted on the local API.
const PathPrefix = "/preview/"

var ErrNotRegularFile = errors.New("preview source is not a regular file")

// Registry tracks every live preview handle by token.
type Registry struct {
	mu       sync.Mutex
	handles  map[string]*Handle
	releases int
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
		logger:  logger,
	}
}

// Handle is one acquired preview. Release is safe to call any number of
// times; only the first call has an effect.
type Handle struct {
	token    string
	path     string
	registry *Registry
	once     sync.Once
}

func (h *Handle) Token() string { return h.token }
func (h *Handle) Path() string  { return h.path }
func (h *Handle) URI() string   { return PathPrefix + h.token }

// Released reports whether the registry no longer serves this handle.
func (h *Handle) Released() bool {
	_, ok := h.registry.Lookup(h.token)
	return !ok
}

// Release revokes the handle and reports whether this call did it.
func (h *Handle) Release() bool {
	released := false
	h.once.Do(func() {
		h.registry.remove(h.token)
		released = true
	})
	return released
}

// Acquire registers path and returns a fresh handle for it.
func (r *Registry) Acquire(path string) (*Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat preview source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegularFile
	}

	h := &Handle{token: uuid.NewString(), path: path, registry: r}

	r.mu.Lock()
	r.handles[h.token] = h
	r.mu.Unlock()

	metrics.IncActivePreviews()
	r.logger.Debug("preview acquired", "token", h.token)
	return h, nil
}

// Lookup returns the file behind a live token.
func (r *Registry) Lookup(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[token]
	if !ok {
		return "", false
	}
	return h.path, true
}

// Active returns the number of handles not yet released.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Releases returns how many handles have been released over the registry's life.
func (r *Registry) Releases() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releases
}

func (r *Registry) remove(token string) {
	r.mu.Lock()
	delete(r.handles, token)
	r.releases++
	r.mu.Unlock()

	metrics.DecActivePreviews()
	r.logger.Debug("preview released", "token", token)
}

// Resource owns at most one handle at a time for a single consumer.
type Resource struct {
	registry *Registry

	mu      sync.Mutex
	current *Handle
}

func NewResource(registry *Registry) *Resource {
	return &Resource{registry: registry}
}

// Replace acquires a handle for path and then releases the previous one.
// The previous handle is released even when acquiring the new one fails,
// since the selection it belonged to is gone either way.
func (r *Resource) Replace(path string) (*Handle, error) {
	next, err := r.registry.Acquire(path)

	r.mu.Lock()
	prev := r.current
	r.current = next
	r.mu.Unlock()

	if prev != nil {
		prev.Release()
	}
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Release drops the current handle, if any.
func (r *Resource) Release() {
	r.mu.Lock()
	prev := r.current
	r.current = nil
	r.mu.Unlock()

	if prev != nil {
		prev.Release()
	}
}

// URI returns the current preview URI or "" when nothing is held.
func (r *Resource) URI() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ""
	}
	return r.current.URI()
}

// Package watcher notices when the currently selected source file changes
// or disappears on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	}
	return "unknown"
}

// FileWatcher follows a single file. It watches the parent directory so
// removal and rename are reported even on platforms that drop the watch
// together with the inode.
type FileWatcher struct {
	logger *slog.Logger

	// opMu serialises Watch and Stop so a replaced watch is always closed.
	opMu sync.Mutex

	mu       sync.Mutex
	callback func(path string, event EventType)
	fsw      *fsnotify.Watcher
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewFileWatcher(logger *slog.Logger) *FileWatcher {
	return &FileWatcher{logger: logger}
}

func (w *FileWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	w.callback = callback
	w.mu.Unlock()
}

// Watch replaces any previous target with path.
func (w *FileWatcher) Watch(ctx context.Context, path string) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if err := w.stop(); err != nil {
		w.logger.Warn("stopping previous watch failed", "error", err)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Base(target), err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.fsw = fsw
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.loop(loopCtx, fsw, target, done)
	w.logger.Debug("watching source file", "file", filepath.Base(target))
	return nil
}

// Stop ends the current watch and waits for its goroutine. Safe to call
// when nothing is being watched.
func (w *FileWatcher) Stop() error {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	return w.stop()
}

func (w *FileWatcher) stop() error {
	w.mu.Lock()
	fsw, cancel, done := w.fsw, w.cancel, w.done
	w.fsw, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	cancel()
	err := fsw.Close()
	<-done
	return err
}

func (w *FileWatcher) loop(ctx context.Context, fsw *fsnotify.Watcher, target string, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			var kind EventType
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				kind = EventDelete
			case event.Has(fsnotify.Create):
				kind = EventCreate
			case event.Has(fsnotify.Write):
				kind = EventModify
			default:
				continue
			}

			w.mu.Lock()
			cb := w.callback
			w.mu.Unlock()
			if cb != nil {
				cb(target, kind)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

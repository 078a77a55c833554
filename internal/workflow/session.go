package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/clipdesk/clipdesk-agent/internal/handoff"
	"github.com/clipdesk/clipdesk-agent/internal/history"
	"github.com/clipdesk/clipdesk-agent/internal/logging"
	"github.com/clipdesk/clipdesk-agent/internal/metrics"
	"github.com/clipdesk/clipdesk-agent/internal/preview"
	"github.com/clipdesk/clipdesk-agent/internal/probe"
	"github.com/clipdesk/clipdesk-agent/internal/remote"
	"github.com/clipdesk/clipdesk-agent/internal/watcher"
)

var ErrClosed = errors.New("session closed")

// Stage is where the user is in the overall flow.
type Stage string

const (
	StageEditing    Stage = "editing"
	StageScheduling Stage = "scheduling"
)

// Options wires a Session. Media, Handoff and Previews are required.
type Options struct {
	Media    remote.MediaService
	Handoff  *handoff.Handoff
	Previews *preview.Registry
	Prober   probe.Prober
	Watcher  watcher.Watcher
	History  history.Repository
	Logger   *slog.Logger
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	Source     SourceVideo `json:"source"`
	FileName   string      `json:"file_name,omitempty"`
	FilePath   string      `json:"file_path,omitempty"`
	PreviewURI string      `json:"preview_uri,omitempty"`
	Uploading  bool        `json:"uploading"`
	Duration   string      `json:"duration,omitempty"`
	Start      string      `json:"start"`
	End        string      `json:"end"`
	Clips      []ClipRange `json:"clips"`
	CanAdd     bool        `json:"can_add"`
	CanSubmit  bool        `json:"can_submit"`
	Pending    bool        `json:"pending"`
	Stage      Stage       `json:"stage"`
	LastError  string      `json:"last_error,omitempty"`
	Result     TrimResult  `json:"result,omitempty"`
}

// Session is one user's trim workflow. Mutating calls are serialised by a
// single mutex. Upload and duration probing run in the background; the
// trim call blocks its caller but works from a snapshot of the queue.
type Session struct {
	intake  *Intake
	orch    *Orchestrator
	preview *preview.Resource
	prober  probe.Prober
	watcher watcher.Watcher
	history history.Repository
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	file      *LocalFile
	selector  Selector
	queue     Queue
	uploading bool
	pending   bool
	stage     Stage
	lastError string
	result    TrimResult
	closed    bool

	// watchMu is taken before mu, never while holding it.
	watchMu  sync.Mutex
	watching string

	listenersMu sync.Mutex
	listeners   []func(Snapshot)
}

func NewSession(opts Options) *Session {
	logger := logging.WithComponent(opts.Logger, "workflow")
	prober := opts.Prober
	if prober == nil {
		prober = probe.Unavailable{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		intake:  NewIntake(opts.Media, logger),
		orch:    NewOrchestrator(opts.Media, opts.Handoff, logger),
		preview: preview.NewResource(opts.Previews),
		prober:  prober,
		watcher: opts.Watcher,
		history: opts.History,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		stage:   StageEditing,
	}
	if s.watcher != nil {
		s.watcher.OnChange(s.onFileEvent)
	}
	return s
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Session) notify() {
	s.listenersMu.Lock()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.listenersMu.Unlock()
	if len(listeners) == 0 {
		return
	}
	snap := s.State()
	for _, fn := range listeners {
		fn(snap)
	}
}

// SelectFile makes file the trim source. The preview is swapped right away
// and the queue starts empty; the upload and duration probe continue in
// the background.
func (s *Session) SelectFile(file LocalFile) error {
	if file.Path == "" {
		return ErrNoFile
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.pending {
		s.mu.Unlock()
		return ErrSubmitPending
	}

	if _, err := s.preview.Replace(file.Path); err != nil {
		s.resetLocked()
		s.mu.Unlock()
		s.syncWatch()
		s.notify()
		return fmt.Errorf("preview source: %w", err)
	}

	token := s.intake.Begin(file)
	s.file = &file
	s.uploading = true
	s.queue.Clear()
	s.selector.Reset()
	s.stage = StageEditing
	s.result = nil
	s.lastError = ""
	s.wg.Add(2)
	s.mu.Unlock()

	metrics.RecordQueueLength(0)
	s.logger.Info("source selected", "file", logging.SanitizePath(file.Path), "token", token)

	go s.upload(token, file)
	go s.probeDuration(token, file.Path)

	s.syncWatch()
	s.notify()
	return nil
}

func (s *Session) upload(token uint64, file LocalFile) {
	defer s.wg.Done()

	src, err := s.intake.Upload(s.ctx, token, file)
	if errors.Is(err, ErrSuperseded) {
		return
	}

	s.mu.Lock()
	if s.intake.Latest(token) {
		s.uploading = false
		if err != nil {
			s.lastError = "upload failed: " + err.Error()
		} else {
			s.lastError = ""
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("upload failed", "file", src.OriginalName, "error", err)
	} else {
		logging.WithSourceID(s.logger, src.SourceID).Info("upload complete", "file", src.OriginalName)
	}
	s.notify()
}

func (s *Session) probeDuration(token uint64, path string) {
	defer s.wg.Done()

	d, err := s.prober.Duration(s.ctx, path)
	if err != nil {
		s.logger.Debug("duration unknown", "error", err)
		return
	}
	if s.intake.SetDuration(token, d) {
		s.notify()
	}
}

func (s *Session) onFileEvent(path string, event watcher.EventType) {
	if event != watcher.EventDelete {
		return
	}

	s.mu.Lock()
	if s.file == nil || !samePath(s.file.Path, path) {
		s.mu.Unlock()
		return
	}
	s.preview.Release()
	s.lastError = "source file was moved or deleted"
	s.mu.Unlock()

	s.logger.Warn("source file disappeared", "file", logging.SanitizePath(path))
	s.notify()
}

// DiscardFile drops the current source together with its queue and
// boundary fields.
func (s *Session) DiscardFile() error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrSubmitPending
	}
	s.resetLocked()
	s.mu.Unlock()

	s.syncWatch()
	metrics.RecordQueueLength(0)
	s.notify()
	return nil
}

func (s *Session) resetLocked() {
	s.preview.Release()
	s.intake.Discard()
	s.file = nil
	s.uploading = false
	s.queue.Clear()
	s.selector.Reset()
	s.stage = StageEditing
	s.result = nil
	s.lastError = ""
}

// syncWatch points the watcher at the current source, or stops it when
// there is none. Every selection change is followed by a call, so the last
// call to finish always sees the latest selection.
func (s *Session) syncWatch() {
	if s.watcher == nil {
		return
	}
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	s.mu.Lock()
	want := ""
	if s.file != nil && !s.closed {
		want = s.file.Path
	}
	s.mu.Unlock()

	if want == s.watching {
		return
	}
	if want == "" {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("stopping file watch failed", "error", err)
		}
		s.watching = ""
		return
	}
	if err := s.watcher.Watch(s.ctx, want); err != nil {
		s.logger.Warn("cannot watch source file", "error", err)
		s.watching = ""
		return
	}
	s.watching = want
}

func (s *Session) SetBoundary(b Boundary, text string) error {
	return s.edit(func() error { return s.selector.Set(b, text) })
}

// CaptureBoundary fills b from a playback position in seconds.
func (s *Session) CaptureBoundary(b Boundary, position float64) error {
	return s.edit(func() error { return s.selector.Capture(b, position) })
}

// AddClip queues the selector's range. ErrInvalidRange means the add
// action is currently disabled.
func (s *Session) AddClip() (ClipRange, error) {
	var added ClipRange
	err := s.edit(func() error {
		r, ok := s.selector.Range()
		if !ok || !s.queue.Append(r) {
			return ErrInvalidRange
		}
		added = r
		return nil
	})
	return added, err
}

// RemoveClip drops the clip at index i; out of range indexes do nothing.
func (s *Session) RemoveClip(i int) (bool, error) {
	var removed bool
	err := s.edit(func() error {
		removed = s.queue.RemoveAt(i)
		return nil
	})
	return removed, err
}

func (s *Session) ClearClips() error {
	return s.edit(func() error {
		s.queue.Clear()
		return nil
	})
}

// edit runs fn under the lock unless a trim is in flight.
func (s *Session) edit(fn func() error) error {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrSubmitPending
	}
	err := fn()
	n := s.queue.Len()
	s.mu.Unlock()

	metrics.RecordQueueLength(n)
	if err == nil {
		s.notify()
	}
	return err
}

// SubmitTrim sends the queue as it is at call time. On success the stage
// moves to scheduling; on failure the queue and source stay as they were.
func (s *Session) SubmitTrim(ctx context.Context) (TrimResult, error) {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrSubmitPending
	}
	src := s.intake.Source()
	if !CanSubmit(src.SourceID, s.queue.Len()) {
		s.mu.Unlock()
		return nil, ErrTrimDisabled
	}
	clips := s.queue.Snapshot()
	s.pending = true
	s.lastError = ""
	s.mu.Unlock()
	s.notify()

	log := logging.WithSourceID(s.logger, src.SourceID)
	rec := s.beginHistory(ctx, src, clips)

	started := time.Now()
	result, err := s.orch.Submit(ctx, src.SourceID, clips)
	elapsed := time.Since(started).Seconds()

	s.mu.Lock()
	s.pending = false
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.stage = StageScheduling
		s.result = result
	}
	s.mu.Unlock()

	if err != nil {
		metrics.RecordTrim(metrics.OutcomeFailure, 0, elapsed)
		s.finishHistory(ctx, rec, nil, err)
		log.Warn("trim failed", "clips", len(clips), "error", err)
		s.notify()
		return nil, err
	}

	metrics.RecordTrim(metrics.OutcomeSuccess, len(result), elapsed)
	s.finishHistory(ctx, rec, result, nil)
	log.Info("trim complete", "requested", len(clips), "returned", len(result))
	s.notify()
	return result, nil
}

func (s *Session) beginHistory(ctx context.Context, src SourceVideo, clips []ClipRange) *history.Trim {
	if s.history == nil {
		return nil
	}
	rec, err := history.NewTrim(src.SourceID, src.OriginalName, len(clips), TrimRequest(src.SourceID, clips))
	if err == nil {
		err = s.history.CreateTrim(context.WithoutCancel(ctx), rec)
	}
	if err != nil {
		s.logger.Warn("cannot record trim", "error", err)
		return nil
	}
	return rec
}

func (s *Session) finishHistory(ctx context.Context, rec *history.Trim, result TrimResult, trimErr error) {
	if rec == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var err error
	if trimErr != nil {
		err = s.history.FailTrim(ctx, rec.ID, trimErr.Error())
	} else {
		var raw []byte
		if raw, err = json.Marshal(result); err == nil {
			err = s.history.CompleteTrim(ctx, rec.ID, raw)
		}
	}
	if err != nil {
		s.logger.Warn("cannot update trim record", "id", rec.ID, "error", err)
	}
}

// State returns the current snapshot.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.intake.Source()
	_, rangeOK := s.selector.Range()

	snap := Snapshot{
		Source:     src,
		PreviewURI: s.preview.URI(),
		Uploading:  s.uploading,
		Start:      s.selector.Start(),
		End:        s.selector.End(),
		Clips:      s.queue.Snapshot(),
		CanAdd:     !s.pending && rangeOK,
		CanSubmit:  !s.pending && CanSubmit(src.SourceID, s.queue.Len()),
		Pending:    s.pending,
		Stage:      s.stage,
		LastError:  s.lastError,
		Result:     s.result,
	}
	if s.file != nil {
		snap.FileName = s.file.name()
		snap.FilePath = s.file.Path
	}
	if src.DurationKnown {
		snap.Duration = probe.FormatClock(src.DurationSeconds)
	}
	return snap
}

// Close releases the preview, stops watching and waits for background
// work. Uploads still running are cancelled.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.syncWatch()
	s.preview.Release()
	s.wg.Wait()
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/clipdesk/clipdesk-agent/internal/metrics"
	"github.com/clipdesk/clipdesk-agent/internal/remote"
)

// ErrSuperseded is returned for an upload that finished after a newer
// selection (or a discard) had already been made.
var ErrSuperseded = errors.New("upload superseded by a newer selection")

// LocalFile is a file on this machine chosen as the trim source.
type LocalFile struct {
	Path string
	// Name is sent as the upload file name. Defaults to the base of Path.
	Name string
}

func (f LocalFile) name() string {
	if f.Name != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

// Intake uploads selected files and tracks which upload owns the source
// identifier. Each selection takes a new token; only the newest token may
// write the identifier.
type Intake struct {
	media  remote.MediaService
	logger *slog.Logger

	mu        sync.Mutex
	token     uint64
	uploading bool
	source    SourceVideo
}

func NewIntake(media remote.MediaService, logger *slog.Logger) *Intake {
	return &Intake{media: media, logger: logger}
}

// Begin starts a new selection and clears the identifier. The returned
// token must be passed to Upload.
func (i *Intake) Begin(file LocalFile) uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.token++
	i.uploading = true
	i.source = SourceVideo{OriginalName: file.name()}
	return i.token
}

// Upload sends the file once. The outcome is applied only if token is
// still the newest; otherwise ErrSuperseded is returned and the state is
// left to the newer selection. Failures clear the identifier.
func (i *Intake) Upload(ctx context.Context, token uint64, file LocalFile) (SourceVideo, error) {
	sourceID, err := i.send(ctx, file)

	i.mu.Lock()
	defer i.mu.Unlock()

	if token != i.token {
		metrics.IncUpload(metrics.OutcomeStale)
		i.logger.Info("discarding superseded upload result", "token", token, "latest", i.token)
		return SourceVideo{}, ErrSuperseded
	}
	i.uploading = false

	if err != nil {
		metrics.IncUpload(metrics.OutcomeFailure)
		i.source.SourceID = ""
		return i.source, err
	}

	metrics.IncUpload(metrics.OutcomeSuccess)
	i.source.SourceID = sourceID
	return i.source, nil
}

// Select is Begin followed by Upload.
func (i *Intake) Select(ctx context.Context, file LocalFile) (SourceVideo, error) {
	return i.Upload(ctx, i.Begin(file), file)
}

func (i *Intake) send(ctx context.Context, file LocalFile) (string, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	res, err := i.media.UploadSource(ctx, file.name(), f)
	if err != nil {
		return "", fmt.Errorf("upload source: %w", err)
	}
	return res.SourcePath, nil
}

// Discard forgets the current selection. Uploads still in flight will
// come back superseded.
func (i *Intake) Discard() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.token++
	i.uploading = false
	i.source = SourceVideo{}
}

// SetDuration records a probed duration if token is still current.
func (i *Intake) SetDuration(token uint64, seconds float64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if token != i.token {
		return false
	}
	i.source.DurationSeconds = seconds
	i.source.DurationKnown = true
	return true
}

// Latest reports whether token belongs to the newest selection.
func (i *Intake) Latest(token uint64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return token == i.token
}

func (i *Intake) Source() SourceVideo {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.source
}

// Uploading reports whether the newest selection is still uploading.
func (i *Intake) Uploading() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.uploading
}

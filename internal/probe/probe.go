// Package probe reads media metadata from local files using ffprobe.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"time"
)

const (
	maxStderrBytes = 4 * 1024
	defaultTimeout = 15 * time.Second
)

var ErrUnavailable = errors.New("duration probe unavailable")

// Prober reports the playable duration of a local media file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFprobe shells out to the ffprobe binary.
type FFprobe struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFprobe resolves name on PATH. A zero timeout uses a 15s default.
func NewFFprobe(name string, timeout time.Duration, logger *slog.Logger) (*FFprobe, error) {
	binary, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q not found: %w", name, err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger.Info("duration probe initialised", "ffprobe", binary)
	return &FFprobe{binary: binary, timeout: timeout, logger: logger}, nil
}

func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &tailWriter{buf: &stderr, limit: maxStderrBytes}

	start := time.Now()
	if err := cmd.Run(); err != nil {
		p.logger.Warn("ffprobe failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"stderr_tail", stderr.String(),
		)
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	return parseDuration(stdout.Bytes())
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseDuration(data []byte) (float64, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return 0, ErrUnavailable
	}
	d, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, fmt.Errorf("ffprobe duration %q: %w", out.Format.Duration, ErrUnavailable)
	}
	return d, nil
}

// Unavailable is used when no ffprobe binary could be found.
type Unavailable struct{}

func (Unavailable) Duration(context.Context, string) (float64, error) {
	return 0, ErrUnavailable
}

// FormatClock renders whole seconds as mm:ss, minutes growing past 99.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// tailWriter keeps only the last limit bytes written.
type tailWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.buf.Write(p)
	if w.buf.Len() > w.limit {
		b := w.buf.Bytes()
		tail := append([]byte(nil), b[len(b)-w.limit:]...)
		w.buf.Reset()
		w.buf.Write(tail)
	}
	return n, nil
}

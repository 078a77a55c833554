package export

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	ErrOutputDir = errors.New("invalid output_dir")
	ErrClipRange = errors.New("clip start must be before end")
	ErrNoClips   = errors.New("clips must not be empty")
	ErrNoMedia   = errors.New("no media path for clips")
	ErrFrameRate = errors.New("invalid frame_rate")
)

const (
	maxProjectLen = 120
	maxClipLen    = 160

	// MaxClipSeconds is the last second a two-digit-hour timecode can show.
	MaxClipSeconds = 99*3600 + 59*60 + 59
	MaxFrameRate   = 240.0
)

// SanitizeName drops control characters, replaces anything outside a
// conservative set with '_' and truncates to maxLen runes.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune(" -_.,()", r)
}

// ProjectName returns a file-safe project name, falling back to the
// media file's base name.
func ProjectName(requested, mediaPath string) string {
	if name := SanitizeName(requested, maxProjectLen); name != "" {
		return name
	}
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	if name := SanitizeName(base, maxProjectLen); name != "" && name != "." {
		return name
	}
	return "clipdesk_export"
}

// Resolve binds clip inputs to mediaPath. Unnamed clips are called
// "Clip N" after their position.
func Resolve(clips []ClipInput, mediaPath string) ([]ResolvedClip, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}
	if mediaPath == "" {
		return nil, ErrNoMedia
	}

	out := make([]ResolvedClip, 0, len(clips))
	for i, c := range clips {
		if math.IsNaN(c.Start) || math.IsNaN(c.End) || c.Start < 0 || c.Start >= c.End {
			return nil, fmt.Errorf("clip %d: %w", i+1, ErrClipRange)
		}
		if c.End > MaxClipSeconds {
			return nil, fmt.Errorf("clip %d: end past %d seconds: %w", i+1, MaxClipSeconds, ErrClipRange)
		}
		name := SanitizeName(c.ClipName, maxClipLen)
		if name == "" {
			name = fmt.Sprintf("Clip %d", i+1)
		}
		out = append(out, ResolvedClip{
			ClipName:  name,
			MediaPath: mediaPath,
			Start:     c.Start,
			End:       c.End,
		})
	}
	return out, nil
}

// ValidateFrameRate accepts zero, meaning DefaultFrameRate, or a positive
// rate up to MaxFrameRate.
func ValidateFrameRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > MaxFrameRate {
		return fmt.Errorf("%w: must be between 0 and %g", ErrFrameRate, MaxFrameRate)
	}
	return nil
}

func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: output_dir is required", ErrOutputDir)
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("%w: path traversal", ErrOutputDir)
		}
	}

	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: must be a clean path", ErrOutputDir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: does not exist", ErrOutputDir)
		}
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory", ErrOutputDir)
	}
	return nil
}

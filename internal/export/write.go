package export

import (
	"fmt"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteEDL atomically writes content to dir/name.edl and returns the path.
// A reader never sees a partially written list.
func WriteEDL(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name+".edl")

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return "", fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.WriteString(content); err != nil {
		return "", fmt.Errorf("write edl: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("replace edl: %w", err)
	}
	return path, nil
}

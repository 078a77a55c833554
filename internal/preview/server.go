package preview

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// ServeHandle streams the file behind token. Unknown or released tokens
// answer 404, as does a file that vanished after it was acquired.
func (r *Registry) ServeHandle(w http.ResponseWriter, req *http.Request, token string) error {
	path, ok := r.Lookup(token)
	if !ok {
		http.Error(w, "preview not found", http.StatusNotFound)
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "preview not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open preview: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat preview: %w", err)
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")

	br, err := ParseRange(req.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	// A malformed header is ignored and the whole file is sent.
	if br == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if req.Method != http.MethodHead {
			io.Copy(w, file)
		}
		return nil
	}

	if _, err := file.Seek(br.First, io.SeekStart); err != nil {
		return fmt.Errorf("seek preview: %w", err)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	w.Header().Set("Content-Range", br.Header(size))
	w.WriteHeader(http.StatusPartialContent)
	if req.Method != http.MethodHead {
		io.CopyN(w, file, br.Length())
	}
	return nil
}

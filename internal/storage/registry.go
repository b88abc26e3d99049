package storage

import (
	"log/slog"
	"sync"
)

// Journal data types.
const (
	KindCaptures = "captures"
	KindReports  = "reports"
)

// WriterRegistry hands out one JSONLWriter per path segment and kind, so each
// watched endpoint gets its own directory.
type WriterRegistry struct {
	baseDir    string
	maxSizeMB  int
	bufferSize int

	// writers maps "pathSegment/kind" -> writer
	writers map[string]*JSONLWriter
	mu      sync.Mutex
}

func NewWriterRegistry(baseDir string, bufferSize int, maxSizeMB int) *WriterRegistry {
	return &WriterRegistry{
		baseDir:    baseDir,
		maxSizeMB:  maxSizeMB,
		bufferSize: bufferSize,
		writers:    make(map[string]*JSONLWriter),
	}
}

// GetWriter returns (or creates) the writer for pathSegment and kind. name is
// the file base name used on creation.
func (r *WriterRegistry) GetWriter(pathSegment, kind, name string) *JSONLWriter {
	subDir := pathSegment + "/" + kind

	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.writers[subDir]; ok {
		return w
	}
	w := NewJSONLWriter(r.baseDir, subDir, name, r.bufferSize, r.maxSizeMB)
	r.writers[subDir] = w
	slog.Info("Created journal writer", "path_segment", pathSegment, "kind", kind, "name", name)
	return w
}

// Close closes every writer and returns the last error seen.
func (r *WriterRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for subDir, w := range r.writers {
		if err := w.Close(); err != nil {
			slog.Error("Failed to close journal writer", "subdir", subDir, "error", err)
			lastErr = err
		}
	}
	r.writers = make(map[string]*JSONLWriter)
	return lastErr
}

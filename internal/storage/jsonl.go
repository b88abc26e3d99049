package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("journal writer is closed")

// ErrBufferFull is returned when the write queue is saturated; the record is dropped.
var ErrBufferFull = errors.New("journal buffer full")

// JSONLWriter appends JSON records to baseDir/<date>/<subDir>/<name>.jsonl
// from a background goroutine. Files rotate by date and by size.
type JSONLWriter struct {
	baseDir   string
	subDir    string // e.g. "api_orders/reports"
	name      string
	maxSizeMB int

	queue  chan any
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once

	mu   sync.Mutex
	date string
	out  *lumberjack.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewJSONLWriter starts a writer. An empty name falls back to the start time.
func NewJSONLWriter(baseDir, subDir, name string, bufferSize, maxSizeMB int) *JSONLWriter {
	if bufferSize < 1 {
		bufferSize = 1
	}
	w := &JSONLWriter{
		baseDir:   baseDir,
		subDir:    subDir,
		name:      name,
		maxSizeMB: maxSizeMB,
		queue:     make(chan any, bufferSize),
		done:      make(chan struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if w.name == "" {
		w.name = fmt.Sprintf("%d", w.now().Unix())
	}

	w.wg.Add(1)
	go w.loop()
	return w
}

// Write queues a record without blocking.
func (w *JSONLWriter) Write(record any) error {
	select {
	case <-w.done:
		return ErrWriterClosed
	default:
	}

	select {
	case w.queue <- record:
		return nil
	default:
		slog.Warn("Journal buffer full, dropping record", "subdir", w.subDir)
		return ErrBufferFull
	}
}

// Close stops the loop, flushes what is queued and closes the file.
func (w *JSONLWriter) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		w.wg.Wait()

		for drained := false; !drained; {
			select {
			case record := <-w.queue:
				w.append(record)
			default:
				drained = true
			}
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.out != nil {
			err = w.out.Close()
			w.out = nil
		}
	})
	return err
}

// Path is the file currently being written, empty before the first record.
func (w *JSONLWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.out == nil {
		return ""
	}
	return w.out.Filename
}

func (w *JSONLWriter) loop() {
	defer w.wg.Done()
	for {
		select {
		case record := <-w.queue:
			w.append(record)
		case <-w.done:
			return
		}
	}
}

func (w *JSONLWriter) append(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("Failed to marshal journal record", "error", err, "subdir", w.subDir)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if date := w.now().Format("2006-01-02"); date != w.date || w.out == nil {
		if err := w.openForDate(date); err != nil {
			slog.Error("Failed to open journal file", "error", err, "subdir", w.subDir)
			return
		}
	}

	if _, err := w.out.Write(append(data, '\n')); err != nil {
		slog.Error("Failed to write journal record", "error", err, "subdir", w.subDir)
	}
}

func (w *JSONLWriter) openForDate(date string) error {
	if w.out != nil {
		if err := w.out.Close(); err != nil {
			slog.Debug("journal close before rotate failed", "error", err)
		}
		w.out = nil
	}

	dir := filepath.Join(w.baseDir, date, filepath.FromSlash(w.subDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	w.out = &lumberjack.Logger{
		Filename:   filepath.Join(dir, w.name+".jsonl"),
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
	}
	w.date = date
	slog.Info("Opened journal file", "file", w.out.Filename, "subdir", w.subDir)
	return nil
}

package llmcall

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/jackzampolin/pagemark/internal/completion"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	Path      string    // JSONL file, appended to
	Writer    io.Writer // Used instead of Path when set (tests)
	QueueSize int       // Buffer size (default: 256)
	Logger    *slog.Logger
}

// Recorder handles fire-and-forget call recording to a JSON Lines log.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	logger *slog.Logger
	queue  chan *Call
	out    *bufio.Writer
	closer io.Closer

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewRecorder creates a recorder and starts its writer goroutine.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := cfg.Writer
	var closer io.Closer
	if w == nil {
		if cfg.Path == "" {
			return nil, fmt.Errorf("recorder needs a path or writer")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create call log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open call log: %w", err)
		}
		w, closer = f, f
	}

	r := &Recorder{
		logger: logger,
		queue:  make(chan *Call, cfg.QueueSize),
		out:    bufio.NewWriter(w),
		closer: closer,
	}
	r.wg.Add(1)
	go r.run()
	return r, nil
}

// Record captures a call asynchronously.
// This is non-blocking - the write is queued and dropped if the queue is full.
func (r *Recorder) Record(result *completion.Result, callErr error, opts RecordOptions) {
	if r == nil {
		return
	}
	r.RecordCall(FromResult(result, callErr, opts))
}

// RecordCall captures an already-constructed Call asynchronously.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- call:
	default:
		r.dropped.Add(1)
		r.logger.Warn("call log queue full, dropping record", "page", call.Page)
	}
}

// Dropped returns the number of records dropped because the queue was full.
func (r *Recorder) Dropped() int64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close flushes queued records and closes the log file.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()

	if err := r.out.Flush(); err != nil {
		return fmt.Errorf("failed to flush call log: %w", err)
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Recorder) run() {
	defer r.wg.Done()
	enc := json.NewEncoder(r.out)
	for call := range r.queue {
		if err := enc.Encode(call); err != nil {
			r.logger.Warn("failed to write call record", "id", call.ID, "error", err)
		}
	}
}

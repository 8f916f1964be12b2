// Package watch implements a hot folder: PDFs created or written in a
// directory are handed to a handler one at a time once they stop changing.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before it is handled.
const DefaultDebounce = 2 * time.Second

// Handler processes one document. Errors are logged and do not stop the watcher.
type Handler func(ctx context.Context, path string) error

// Config configures a Watcher.
type Config struct {
	Dir       string        // Required
	Debounce  time.Duration // default: DefaultDebounce
	Existing  bool          // Also handle PDFs already in Dir at startup
	QueueSize int           // default: 64
	Logger    *slog.Logger
}

// Watcher feeds settled PDFs in a directory to a Handler sequentially.
type Watcher struct {
	dir      string
	debounce time.Duration
	existing bool
	handle   Handler
	logger   *slog.Logger

	queue chan string

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]bool
	stopped bool
	firing  sync.WaitGroup // timer callbacks scheduled but not finished
}

// New creates a watcher for cfg.Dir.
func New(cfg Config, handle Handler) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if handle == nil {
		return nil, fmt.Errorf("handler is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      cfg.Dir,
		debounce: cfg.Debounce,
		existing: cfg.Existing,
		handle:   handle,
		logger:   logger.With("dir", cfg.Dir),
		queue:    make(chan string, cfg.QueueSize),
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]bool),
	}, nil
}

// IsPDF reports whether path has a .pdf extension, ignoring case.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Run watches until ctx is cancelled. The document being handled when ctx
// is cancelled sees the cancellation through its context.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	defer func() {
		cancel()
		w.stopTimers()
		w.firing.Wait()
		wg.Wait()
	}()

	if w.existing {
		w.enqueueExisting(ctx)
	}

	w.logger.Info("watching for documents")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !IsPDF(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) enqueueExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to list existing documents", "error", err)
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && IsPDF(e.Name()) {
			w.enqueue(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

// schedule (re)starts the quiet-period timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		// An expired timer's callback is already running and will call
		// Done once; Reset schedules a second run that needs its own Add.
		if !t.Reset(w.debounce) {
			w.firing.Add(1)
		}
		return
	}
	w.firing.Add(1)
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		defer w.firing.Done()
		w.mu.Lock()
		delete(w.timers, path)
		stopped := w.stopped
		w.mu.Unlock()
		if !stopped {
			w.enqueue(ctx, path)
		}
	})
}

// stopTimers cancels pending timers and blocks new ones.
func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for path, t := range w.timers {
		if t.Stop() {
			w.firing.Done()
		}
		delete(w.timers, path)
	}
}

// enqueue adds path unless it is already waiting to be handled.
func (w *Watcher) enqueue(ctx context.Context, path string) {
	w.mu.Lock()
	if w.pending[path] {
		w.mu.Unlock()
		return
	}
	w.pending[path] = true
	w.mu.Unlock()

	select {
	case w.queue <- path:
		w.logger.Debug("queued document", "path", path)
	case <-ctx.Done():
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()

			if _, err := os.Stat(path); err != nil {
				w.logger.Debug("document disappeared before handling", "path", path)
				continue
			}

			start := time.Now()
			if err := w.handle(ctx, path); err != nil {
				w.logger.Error("failed to handle document", "path", path, "error", err)
				continue
			}
			w.logger.Info("handled document", "path", path, "duration", time.Since(start))
		}
	}
}

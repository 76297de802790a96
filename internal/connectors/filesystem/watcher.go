// Package filesystem watches a local inbox directory for dropped-in filings.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hedgeintel/filingqa/internal/logger"
)

// DefaultDebounce coalesces the burst of events a single copy produces.
const DefaultDebounce = 500 * time.Millisecond

var tickerPrefix = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9.\-]{0,9})_.+$`)

// supportedExtensions lists the inbox file types.
var supportedExtensions = map[string]bool{
	".htm":  true,
	".html": true,
	".txt":  true,
	".pdf":  true,
}

// Handler ingests one settled file for ticker.
type Handler func(ctx context.Context, ticker, path string) error

// Watcher ingests files dropped into a directory. Files must be named
// TICKER_anything.ext.
type Watcher struct {
	dir      string
	debounce time.Duration
	handle   Handler

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, handle Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		handle:   handle,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Ingest errors are logged and
// never stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	defer w.stop()

	logger.Info("watching %s for filings", w.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleFsEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("inbox watcher: %v", err)
		case path := <-w.ready:
			w.ingest(ctx, path)
		}
	}
}

// handleFsEvent schedules a debounced ingest. It reports whether the
// event was accepted.
func (w *Watcher) handleFsEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if isHidden(event.Name) || !supportedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return false
	}
	if _, ok := TickerFromName(event.Name); !ok {
		logger.Warn("inbox: %s is not named TICKER_name.ext, skipping", filepath.Base(event.Name))
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[event.Name]; ok {
		t.Reset(w.debounce)
		return true
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
	return true
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	ticker, _ := TickerFromName(path)
	logger.Info("inbox: ingesting %s for %s", filepath.Base(path), ticker)
	if err := w.handle(ctx, ticker, path); err != nil {
		logger.Error("inbox: %s: %v", filepath.Base(path), err)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	close(w.done)
}

// TickerFromName extracts the upper-cased ticker from TICKER_anything.ext.
func TickerFromName(path string) (string, bool) {
	m := tickerPrefix.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// isHidden checks if a path component starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

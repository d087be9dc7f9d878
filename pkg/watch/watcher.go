// Package watch re-runs analysis when source files change.
package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/spaces/internal/scanner"
	"github.com/panbanda/spaces/pkg/config"
)

// DefaultDebounce is how long a file must stay unchanged before its change
// is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a directory tree and reports batches of changed source
// files once they have settled.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	scanner   *scanner.Scanner
	debounce  time.Duration
	path      string
	callback  func(paths []string)
	logger    *log.Logger
	mu        sync.Mutex
	pending   map[string]time.Time

	done     chan struct{}
	stopOnce sync.Once
	// flushed is closed when the debounce loop has returned.
	flushed chan struct{}
}

// NewWatcher creates a new file watcher rooted at path.
func NewWatcher(path string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		scanner:   scanner.NewScanner(cfg),
		debounce:  debounce,
		path:      path,
		logger:    log.New(io.Discard),
		pending:   make(map[string]time.Time),
		done:      make(chan struct{}),
		flushed:   make(chan struct{}),
	}, nil
}

// SetCallback sets the function called with the settled changed files,
// sorted. Calls never overlap.
func (w *Watcher) SetCallback(cb func(paths []string)) {
	w.mu.Lock()
	w.callback = cb
	w.mu.Unlock()
}

// SetLogger sets the logger for watch errors and skipped events.
func (w *Watcher) SetLogger(l *log.Logger) {
	if l != nil {
		w.logger = l
	}
}

// Start watches until ctx is done. It returns ctx.Err() on cancellation and
// nil when the watcher was stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.path); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "path", w.path, "dirs", len(w.fsWatcher.WatchList()))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// addTree watches root and every directory below it that is not excluded.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excludedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) excludedDir(name string) bool {
	for _, excluded := range w.config.Exclude.Dirs {
		if name == excluded {
			return true
		}
	}
	return false
}

// handleEvent records a write or create of an analyzable file. New
// directories are added to the watch.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	path := event.Name
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excludedDir(info.Name()) {
				if err := w.addTree(path); err != nil {
					w.logger.Warn("failed to watch directory", "path", path, "err", err)
				}
			}
			return
		}
	}

	rel, err := filepath.Rel(w.path, path)
	if err != nil {
		rel = path
	}
	if !w.scanner.Accept(filepath.ToSlash(rel)) {
		w.logger.Debug("ignoring change", "path", rel)
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced processes pending changes after debounce period until
// ctx is done or the watcher is stopped.
func (w *Watcher) processDebounced(ctx context.Context) {
	defer close(w.flushed)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending reports the files that have been stable for the debounce
// period. The callback runs outside the lock so events keep queueing.
func (w *Watcher) processPending() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	cb := w.callback
	w.mu.Unlock()

	if len(ready) == 0 || cb == nil {
		return
	}
	sort.Strings(ready)
	cb(ready)
}

// Stop stops the watcher and its debounce loop. It is safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}

package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Invalidator is a library whose cached index can be dropped.
type Invalidator interface {
	Invalidate()
}

// WatcherConfig contains configuration for the library watcher.
type WatcherConfig struct {
	// Root is the directory tree to watch.
	Root string

	// DebounceInterval is the quiet period after the last change before
	// the index is invalidated.
	// Default: 200ms
	DebounceInterval time.Duration
}

// Watcher invalidates a library's index when files under its root change.
// It never triggers an audit; changed documents are picked up by the next
// request that reads them.
type Watcher struct {
	watcher *fsnotify.Watcher
	target  Invalidator
	config  *WatcherConfig
	logger  *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	fired  int
	closed bool
}

// NewWatcher creates a watcher for target.
func NewWatcher(target Invalidator, config *WatcherConfig) (*Watcher, error) {
	if config == nil || config.Root == "" {
		return nil, fmt.Errorf("watch root cannot be empty")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 200 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		watcher: fw,
		target:  target,
		config:  config,
		logger:  slog.Default().With("component", "library.watcher"),
	}, nil
}

// Run watches until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()

	if err := w.addTree(w.config.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.config.Root, err)
	}
	w.logger.Info("library watcher started",
		"root", w.config.Root,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("library watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op == fsnotify.Chmod || strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("library change detected", "path", event.Name, "op", event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("library watcher error", "error", err)
		}
	}
}

// Invalidations returns how many times the index has been invalidated.
func (w *Watcher) Invalidations() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceInterval, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.fired++
		w.mu.Unlock()
		w.target.Invalidate()
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.watcher.Close()
}

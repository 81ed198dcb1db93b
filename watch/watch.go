// Package watch notifies callers when a single file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/phuslu/log"
)

// DefaultDebounce is how long to wait after the last event before firing.
// Editors often write files in multiple steps.
const DefaultDebounce = 100 * time.Millisecond

// Watcher calls a function after its file was written, created, removed or renamed.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   *log.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.Debounce = d
	}
}

// WithLogger reports watcher errors to logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) {
		w.Logger = logger
	}
}

// New creates a watcher for path.
func New(path string, opts ...Option) *Watcher {
	w := &Watcher{Path: path, Debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done, calling onChange after every debounced
// burst of changes to the file. The containing directory is watched rather
// than the file itself so that atomic saves (write to temp, rename over) are
// seen.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	path, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", w.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.Debounce, func() {
				if ctx.Err() == nil {
					onChange()
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.Logger != nil {
				w.Logger.Warn().Err(err).Str("path", path).Msg("file watcher error")
			}
		}
	}
}

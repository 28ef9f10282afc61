package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/terra-clan/certmap/internal/filter"
)

// DefaultSettle is how long the watcher waits for a burst of file events to
// end before reloading.
const DefaultSettle = 250 * time.Millisecond

// Watcher reloads the catalog when the seed file changes
type Watcher struct {
	loader   *Loader
	path     string
	debounce *filter.Debouncer
}

// NewWatcher creates a watcher for path. Reloads go through loader.
func NewWatcher(loader *Loader, path string, settle time.Duration) *Watcher {
	return &Watcher{
		loader:   loader,
		path:     filepath.Clean(path),
		debounce: filter.NewDebouncer(settle, nil),
	}
}

// Start watches the parent directory of the file until ctx is cancelled.
// Editors often replace files instead of writing them in place, so the
// directory is watched rather than the file.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	slog.Info("catalog watcher started", "path", w.path)

	go func() {
		defer fw.Close()
		defer w.debounce.Cancel()

		for {
			select {
			case <-ctx.Done():
				slog.Info("catalog watcher stopped")
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != w.path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				w.debounce.Trigger(func() { w.reload(ctx) })
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Warn("catalog watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.loader.Reload(ctx); err != nil {
		slog.Warn("catalog reload failed, keeping previous version", "path", w.path, "error", err)
	}
}

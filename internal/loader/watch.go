package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a dump file must stay quiet before it is
// reloaded.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a dump file whenever it changes.
type Watcher struct {
	loader   *Loader
	path     string
	debounce time.Duration
	notifier *Notifier
}

// NewWatcher creates a Watcher for the dump at path.
func NewWatcher(l *Loader, path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{loader: l, path: path, debounce: debounce, notifier: NewNotifier()}
}

// Notifier returns the notifier that receives every successful reload.
func (w *Watcher) Notifier() *Notifier {
	return w.notifier
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file so that editors replacing the file by rename are noticed.
// Failed reloads are logged and leave the previous snapshot in place.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := FormatOf(w.path); err != nil {
		return err
	}
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", w.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w.loader.logger.Debug("watching schema dump", "file", abs)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				w.reload(ctx)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.loader.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.loader.logger.Debug("schema dump changed, reloading", "file", w.path)
	load, err := w.loader.LoadFile(ctx, w.path)
	if err != nil {
		w.loader.logger.Error("reload failed", "file", w.path, "error", err)
		return
	}
	w.notifier.Broadcast(load)
}

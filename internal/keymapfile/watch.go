package keymapfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDelay collapses the burst of events an editor save produces.
const ReloadDelay = 100 * time.Millisecond

// Update is the result of reloading a changed keymap file.
type Update struct {
	Keymap *Keymap
	Err    error
}

// Watch reloads path whenever it is written or replaced and delivers the
// result on the returned channel, which is closed when ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger) (<-chan Update, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	out := make(chan Update)
	go func() {
		defer close(out)
		defer w.Close()

		timer := time.NewTimer(ReloadDelay)
		timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				timer.Reset(ReloadDelay)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("keymap watcher error", "error", err)
			case <-timer.C:
				km, err := Load(path)
				logger.Debug("keymap changed", "path", path, "error", err)
				select {
				case out <- Update{Keymap: km, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

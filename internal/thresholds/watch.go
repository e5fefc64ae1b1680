package thresholds

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce absorbs the burst of events editors emit for one save.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the threshold file whenever it changes and swaps valid
// versions into h. Invalid edits are logged and the active version stays.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, h *Holder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file by rename.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			applyReload(path, h, logger)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("threshold watcher error", slog.String("error", err.Error()))
		}
	}
}

func applyReload(path string, h *Holder, logger *slog.Logger) {
	cfg, err := Load(path)
	if err != nil {
		logger.Error("rejected threshold reload; keeping active version",
			slog.String("path", path),
			slog.String("active_version", h.Current().Version),
			slog.String("error", err.Error()))
		return
	}
	prev := h.Swap(cfg)
	logger.Info("thresholds reloaded",
		slog.String("path", path),
		slog.String("from_version", prev.Version),
		slog.String("to_version", cfg.Version))
}

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch blocks until ctx is canceled, reloading the config file whenever it
// changes and invoking onChange with the freshly loaded configuration.
// Editors often replace files rather than writing in place, so the parent
// directory is watched and events are debounced.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watch unavailable", "error", err)
		return
	}
	defer w.Close() //nolint:errcheck

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		logger.Warn("config watch unavailable", "path", dir, "error", err)
		return
	}

	logger.Debug("watching config file", "path", path)

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("config watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload failed, keeping previous", "error", err)
				continue
			}
			logger.Info("config reloaded", "path", path)
			onChange(cfg)
		}
	}
}

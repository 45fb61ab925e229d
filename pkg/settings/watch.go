package settings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is written or replaced and passes valid
// settings to fn. Invalid or half-written files are logged and skipped.
// The parent directory is watched so atomic renames are seen. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(Settings)) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "settings.watch")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			s, err := Load(abs)
			if err != nil {
				logger.Debug("reload skipped", "error", err)
				continue
			}
			if err := s.Validate(); err != nil {
				logger.Warn("ignoring invalid settings", "error", err)
				continue
			}
			logger.Info("settings reloaded", "path", abs)
			fn(s)
		}
	}
}

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the calibration file whenever it is written or replaced and
// hands every valid result to apply. Invalid files are logged and ignored.
// It blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, log *zap.SugaredLogger, apply func(Calibration)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch calibration dir: %w", err)
	}

	target := filepath.Clean(path)

	log.Infow("config: Watch: G listening", "path", target)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cal, err := Load(target)
			if err != nil {
				log.Errorw("config: Watch: reload", "ERROR", err)
				continue
			}
			apply(cal)
			log.Infow("config: Watch: calibration reloaded", "path", target)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorw("config: Watch", "ERROR", err)
		}
	}
}

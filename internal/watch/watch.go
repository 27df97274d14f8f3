// Package watch optionally re-triggers ingestion when a dbt project's
// compiled manifest changes, so a long-running capsule server (outside
// this repo's scope) or a local dev loop never serves a stale index.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReindexFunc re-runs ingestion against the manifest at the watched path.
type ReindexFunc func(ctx context.Context) error

// Manifest watches manifestPath for changes and invokes reindex whenever
// the file is written. If fsnotify can't start a watcher (e.g. on a
// filesystem that doesn't support inotify), it falls back to polling the
// file's mtime every pollInterval.
func Manifest(ctx context.Context, manifestPath string, pollInterval time.Duration, logger *slog.Logger, reindex ReindexFunc) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("fsnotify unavailable, falling back to polling", "error", err)
		return pollManifest(ctx, manifestPath, pollInterval, logger, reindex)
	}
	defer watcher.Close()

	dir := filepath.Dir(manifestPath)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("watching target directory failed, falling back to polling", "error", err)
		return pollManifest(ctx, manifestPath, pollInterval, logger, reindex)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(manifestPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := reindex(ctx); err != nil {
				logger.Error("reindex after manifest change failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

func pollManifest(ctx context.Context, manifestPath string, interval time.Duration, logger *slog.Logger, reindex ReindexFunc) error {
	var lastMod time.Time
	if info, err := os.Stat(manifestPath); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			info, err := os.Stat(manifestPath)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				if err := reindex(ctx); err != nil {
					logger.Error("reindex after manifest change failed", "error", err)
				}
			}
		}
	}
}

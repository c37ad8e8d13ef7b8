package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on watchDir and signals nudge whenever a
// matching capture is created or written, until ctx is cancelled. Sends on
// nudge never block: a pending nudge already covers the new file.
//
// New directories created at runtime are added to the watch list.
func Watch(ctx context.Context, watchDir string, logger *slog.Logger, nudge chan<- struct{}) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, watchDir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", watchDir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					signal(nudge)
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !Match(filepath.Base(ev.Name)) {
				continue
			}
			logger.Debug("watcher: capture seen", slog.String("path", ev.Name))
			signal(nudge)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func signal(nudge chan<- struct{}) {
	select {
	case nudge <- struct{}{}:
	default:
	}
}

// addDirsRecursive adds root and all its subdirectories, following
// symlinked ones, to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	if err := w.Add(root); err != nil {
		return err
	}
	return walk(root, func(path, _ string, isDir bool) error {
		if isDir {
			return w.Add(path)
		}
		return nil
	})
}

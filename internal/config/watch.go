package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/checkvpn/internal/logger"
	"github.com/MrSnakeDoc/checkvpn/internal/utils"
)

const watchDebounce = 250 * time.Millisecond

// Watch signals on the returned channel after path changes. The parent
// directory is watched so editors that replace the file are noticed too.
// Bursts of events collapse into one signal.
func Watch(ctx context.Context, path string, log logger.Logger) (<-chan struct{}, error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		utils.Close(w)
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer utils.CloseLogged(w, log, "config watcher")

		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					debounce = time.After(watchDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", logger.Error(err))
			case <-debounce:
				debounce = nil
				log.Debug("config file changed", logger.String("path", target))
				select {
				case changes <- struct{}{}:
				default:
				}
			}
		}
	}()

	return changes, nil
}

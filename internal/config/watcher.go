package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads the configuration whenever the file at path changes and
// passes the fresh Config to onReload. Editors often replace files via
// rename, so the parent directory is watched and events are filtered by
// name. The watcher stops when ctx is cancelled. Reload failures keep the
// previous configuration.
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err = watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		// Debounce bursts of write events from a single save.
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(200 * time.Millisecond)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("config watcher error: %v", err)
			case <-pending:
				pending = nil
				cfg, errLoad := LoadConfig(path)
				if errLoad != nil {
					log.Warnf("config reload failed, keeping previous config: %v", errLoad)
					continue
				}
				log.Infof("config reloaded from %s", path)
				onReload(cfg)
			}
		}
	}()
	return nil
}

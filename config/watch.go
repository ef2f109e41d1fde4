package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"render-culling/log"
)

var logger = log.New("config")

// reloadDelay coalesces the burst of events editors produce for one save.
const reloadDelay = 50 * time.Millisecond

// Watch reloads the settings file at path whenever it changes and passes
// the new settings to onChange. A file that fails to load or validate is
// logged and skipped; the previous settings stay in effect. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, onChange func(Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch settings: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch settings: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch settings %q: %w", path, err)
	}
	logger.Infof("watching %s", abs)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}

		case <-timer.C:
			s, err := Load(abs)
			if err != nil {
				logger.Warningf("ignoring settings change: %v", err)
				continue
			}
			logger.Noticef("reloaded settings from %s", abs)
			onChange(s)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("settings watcher: %v", err)
		}
	}
}

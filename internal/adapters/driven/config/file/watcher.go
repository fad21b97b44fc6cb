package file

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/calsync/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

var watchLog = logger.Named("config")

// Watcher reloads a ConfigStore when its file changes on disk.
//
// It watches the file's directory rather than the file, because atomic
// saves replace the file and drop a watch on the old inode.
type Watcher struct {
	store    *ConfigStore
	onChange func()
	debounce time.Duration
}

// NewWatcher creates a watcher for store. onChange runs after every
// successful reload and may be nil.
func NewWatcher(store *ConfigStore, onChange func()) *Watcher {
	return &Watcher{
		store:    store,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.store.Path())); err != nil {
		return fmt.Errorf("watching %s: %w", w.store.Path(), err)
	}
	watchLog.Debug("watching %s", w.store.Path())

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			watchLog.Warn("file watcher: %v", err)
		}
	}
}

// relevant reports whether an event may have changed the config file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

func (w *Watcher) reload() {
	if err := w.store.Load(); err != nil {
		// Keep the previous values until the file parses again.
		watchLog.Warn("reload %s: %v", w.store.Path(), err)
		return
	}
	watchLog.Info("reloaded %s", w.store.Path())
	if w.onChange != nil {
		w.onChange()
	}
}

package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"firmtrace/control"
	"firmtrace/debug"
)

// FollowDebounce is how long Follow waits after the last write before
// re-reading, so a capture being written is not read half-way.
var FollowDebounce = 100 * time.Millisecond

// Follow loads path once, then reloads it every time it is rewritten and
// passes each successfully parsed capture to handle. It watches the parent
// directory so captures replaced by rename are picked up. It blocks until
// ctx is cancelled or handle returns an error.
func Follow(ctx context.Context, path string, handle func(*Capture) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("capture: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("capture: watch %q: %w", path, err)
	}

	reload := func() error {
		c, err := Load(path)
		if err != nil {
			debug.DropError("capture: reload "+path, err)
			return nil
		}
		control.SignalActivity()
		return handle(c)
	}
	if err := reload(); err != nil {
		return err
	}

	target := filepath.Clean(path)
	var debounce <-chan time.Time
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
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				debounce = time.After(FollowDebounce)
			}

		case <-debounce:
			debounce = nil
			if err := reload(); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			debug.DropError("capture: watcher", err)
		}
	}
}

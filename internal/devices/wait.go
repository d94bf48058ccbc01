package devices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWaitTimeout is returned by WaitFor when the node did not appear in time.
var ErrWaitTimeout = errors.New("timed out waiting for device")

// WaitFor blocks until a file exists at path, ctx is cancelled or timeout
// elapses. A timeout of zero or less checks once and does not wait.
//
// v4l2loopback nodes and USB cameras often show up a moment after the
// service starts; the parent directory is watched so the node is noticed as
// soon as udev creates it.
func WaitFor(ctx context.Context, path string, timeout time.Duration) error {
	if exists(path) {
		return nil
	}
	if timeout <= 0 {
		return fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// The node may have appeared between the first check and Add.
	if exists(path) {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%s after %s: %w", path, timeout, ErrWaitTimeout)
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watch %s: watcher closed", dir)
			}
			if event.Has(fsnotify.Create) && exists(path) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watch %s: watcher closed", dir)
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

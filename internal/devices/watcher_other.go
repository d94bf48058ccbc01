//go:build !linux

package devices

import (
	"context"

	"github.com/smazurov/videoloop/internal/events"
)

// Watcher publishes device hotplug events. Hotplug monitoring needs netlink,
// so on this platform Run only waits for ctx.
type Watcher struct{}

// NewWatcher creates a watcher for the given source and sink paths.
func NewWatcher(_, _ string, _ *events.Bus) *Watcher {
	return &Watcher{}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

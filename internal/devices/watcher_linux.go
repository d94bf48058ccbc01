//go:build linux

package devices

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/videoloop/internal/events"
	"github.com/smazurov/videoloop/internal/logging"
	"github.com/smazurov/videoloop/pkg/linuxav/hotplug"
)

// Watcher publishes a DeviceChangedEvent whenever the kernel reports an
// event for the source or sink node.
type Watcher struct {
	nodes  map[string]string // role -> path
	bus    *events.Bus
	logger *slog.Logger
}

// NewWatcher creates a watcher for the given source and sink paths.
func NewWatcher(source, sink string, bus *events.Bus) *Watcher {
	return &Watcher{
		nodes:  map[string]string{RoleSource: source, RoleSink: sink},
		bus:    bus,
		logger: logging.GetLogger("devices"),
	}
}

// Run listens for hotplug events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	mon, err := hotplug.NewMonitor()
	if err != nil {
		return err
	}
	defer mon.Close()
	mon.AddSubsystemFilter(hotplug.SubsystemVideo4Linux)

	ch := make(chan hotplug.Event, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- mon.Run(ctx, ch) }()

	w.logger.Debug("Watching for device changes", "source", w.nodes[RoleSource], "sink", w.nodes[RoleSink])

	for ev := range ch {
		w.handle(ev)
	}

	err = <-errCh
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (w *Watcher) handle(ev hotplug.Event) {
	for _, role := range []string{RoleSource, RoleSink} {
		if !ev.Matches(w.nodes[role]) {
			continue
		}

		level := slog.LevelInfo
		if ev.Action == hotplug.ActionRemove {
			level = slog.LevelWarn
		}
		w.logger.Log(context.Background(), level, "Device changed",
			"role", role, "device", ev.Node(), "action", ev.Action)

		w.bus.Publish(events.DeviceChangedEvent{
			Role:       role,
			DevicePath: ev.Node(),
			Action:     ev.Action,
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
}

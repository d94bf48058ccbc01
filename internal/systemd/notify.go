// Package systemd reports pipeline progress to the service manager through
// the sd_notify protocol.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/videoloop/internal/events"
	"github.com/smazurov/videoloop/internal/logging"
)

// Notifier translates pipeline events into READY, STATUS, STOPPING and
// WATCHDOG notifications. Without NOTIFY_SOCKET every call is a no-op.
type Notifier struct {
	enabled bool
	logger  *slog.Logger

	// notify is daemon.SdNotify, replaced in tests.
	notify func(unsetEnvironment bool, state string) (bool, error)
	// watchdogInterval is daemon.SdWatchdogEnabled, replaced in tests.
	watchdogInterval func(unsetEnvironment bool) (time.Duration, error)

	mu     sync.Mutex
	state  string
	format string
	ready  bool
}

// NewNotifier creates a notifier. A disabled notifier never talks to
// systemd.
func NewNotifier(enabled bool) *Notifier {
	return &Notifier{
		enabled:          enabled,
		logger:           logging.GetLogger("systemd"),
		notify:           daemon.SdNotify,
		watchdogInterval: daemon.SdWatchdogEnabled,
	}
}

// Attach subscribes the notifier to bus and returns the unsubscribe
// function.
func (n *Notifier) Attach(bus *events.Bus) func() {
	unsubState := bus.Subscribe(n.onStateChanged)
	unsubFormat := bus.Subscribe(n.onFormatNegotiated)
	return func() {
		unsubState()
		unsubFormat()
	}
}

func (n *Notifier) onFormatNegotiated(e events.FormatNegotiatedEvent) {
	n.mu.Lock()
	n.format = fmt.Sprintf("%dx%d %s", e.Width, e.Height, e.FourCC)
	n.mu.Unlock()
}

func (n *Notifier) onStateChanged(e events.StateChangedEvent) {
	n.mu.Lock()
	n.state = e.State
	format := n.format
	firstReady := e.State == "steady" && !n.ready
	if firstReady {
		n.ready = true
	}
	n.mu.Unlock()

	switch e.State {
	case "steady":
		status := "STATUS=Forwarding frames"
		if format != "" {
			status += " (" + format + ")"
		}
		if firstReady {
			n.send(daemon.SdNotifyReady + "\n" + status)
		} else {
			n.send(status)
		}
	case "fatal":
		n.send(daemon.SdNotifyStopping + "\nSTATUS=Failed: " + e.Error)
	case "stopped":
		n.send(daemon.SdNotifyStopping + "\nSTATUS=Stopped")
	default:
		n.send("STATUS=" + statusText(e.State))
	}
}

// RunWatchdog pings the systemd watchdog until ctx is cancelled. Once the
// pipeline is steady a ping is only sent when progress has advanced since
// the previous one, so a stalled device lets the watchdog expire.
func (n *Notifier) RunWatchdog(ctx context.Context, progress func() uint64) {
	if !n.enabled {
		return
	}
	interval, err := n.watchdogInterval(false)
	if err != nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	n.logger.Debug("Watchdog enabled", "interval", interval)

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.mu.Lock()
			steady := n.state == "steady"
			n.mu.Unlock()

			current := progress()
			if steady && current == last {
				n.logger.Warn("No frames forwarded since last watchdog ping", "frames", current)
				continue
			}
			last = current
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) send(state string) {
	if !n.enabled {
		return
	}
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "error", err)
		return
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
}

func statusText(state string) string {
	switch state {
	case "init":
		return "Opening devices"
	case "idle":
		return "Starting"
	default:
		return state
	}
}

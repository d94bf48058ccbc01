package systemd

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/videoloop/internal/events"
)

type recorder struct {
	mu   sync.Mutex
	sent []string
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, state)
	return true, nil
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func newTestNotifier(enabled bool) (*Notifier, *recorder) {
	rec := &recorder{}
	n := NewNotifier(enabled)
	n.notify = rec.notify
	return n, rec
}

func TestNotifierStateTransitions(t *testing.T) {
	n, rec := newTestNotifier(true)

	n.onStateChanged(events.StateChangedEvent{State: "init", Previous: "idle"})
	n.onFormatNegotiated(events.FormatNegotiatedEvent{Width: 640, Height: 480, FourCC: "YUYV"})
	n.onStateChanged(events.StateChangedEvent{State: "steady", Previous: "init"})
	n.onStateChanged(events.StateChangedEvent{State: "fatal", Previous: "steady", Error: "DRIVER: dequeue capture buffer"})

	got := rec.messages()
	want := []string{
		"STATUS=Opening devices",
		"READY=1\nSTATUS=Forwarding frames (640x480 YUYV)",
		"STOPPING=1\nSTATUS=Failed: DRIVER: dequeue capture buffer",
	}
	if len(got) != len(want) {
		t.Fatalf("sent %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotifierReadyOnce(t *testing.T) {
	n, rec := newTestNotifier(true)
	n.onStateChanged(events.StateChangedEvent{State: "steady"})
	n.onStateChanged(events.StateChangedEvent{State: "steady"})

	ready := 0
	for _, m := range rec.messages() {
		if strings.Contains(m, "READY=1") {
			ready++
		}
	}
	if ready != 1 {
		t.Errorf("READY sent %d times, want 1", ready)
	}
}

func TestNotifierDisabled(t *testing.T) {
	n, rec := newTestNotifier(false)
	n.onStateChanged(events.StateChangedEvent{State: "steady"})
	n.RunWatchdog(context.Background(), func() uint64 { return 0 })

	if got := rec.messages(); len(got) != 0 {
		t.Errorf("disabled notifier sent %q", got)
	}
}

func TestNotifierAttach(t *testing.T) {
	n, rec := newTestNotifier(true)
	bus := events.New()
	detach := n.Attach(bus)
	defer detach()

	bus.Publish(events.StateChangedEvent{State: "stopped"})

	deadline := time.After(time.Second)
	for {
		if msgs := rec.messages(); len(msgs) > 0 {
			if msgs[0] != "STOPPING=1\nSTATUS=Stopped" {
				t.Errorf("got %q", msgs[0])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("no notification after publishing a state change")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunWatchdogRequiresProgress(t *testing.T) {
	n, rec := newTestNotifier(true)
	n.watchdogInterval = func(bool) (time.Duration, error) { return 20 * time.Millisecond, nil }
	n.onStateChanged(events.StateChangedEvent{State: "steady"})

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	// Frames never advance past 10.
	n.RunWatchdog(ctx, func() uint64 { return 10 })

	pings := 0
	for _, m := range rec.messages() {
		if m == "WATCHDOG=1" {
			pings++
		}
	}
	if pings != 1 {
		t.Errorf("watchdog pinged %d times for a stalled pipeline, want 1", pings)
	}
}

func TestRunWatchdogDisabledBySystemd(t *testing.T) {
	n, rec := newTestNotifier(true)
	n.watchdogInterval = func(bool) (time.Duration, error) { return 0, nil }

	done := make(chan struct{})
	go func() {
		n.RunWatchdog(context.Background(), func() uint64 { return 0 })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunWatchdog should return when systemd has no watchdog configured")
	}
	if len(rec.messages()) != 0 {
		t.Error("no pings expected without a watchdog")
	}
}

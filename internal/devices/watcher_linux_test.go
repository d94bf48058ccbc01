//go:build linux

package devices

import (
	"testing"
	"time"

	"github.com/smazurov/videoloop/internal/events"
	"github.com/smazurov/videoloop/pkg/linuxav/hotplug"
)

func TestWatcherHandle(t *testing.T) {
	bus := events.New()
	received := make(chan events.DeviceChangedEvent, 4)
	unsub := bus.Subscribe(func(e events.DeviceChangedEvent) { received <- e })
	defer unsub()

	w := NewWatcher("/dev/video0", "/dev/video20", bus)

	w.handle(hotplug.Event{Action: hotplug.ActionChange, Subsystem: hotplug.SubsystemVideo4Linux, DevName: "video7"})
	w.handle(hotplug.Event{Action: hotplug.ActionRemove, Subsystem: hotplug.SubsystemVideo4Linux, DevName: "video20"})

	select {
	case e := <-received:
		if e.Role != RoleSink || e.DevicePath != "/dev/video20" || e.Action != hotplug.ActionRemove {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no DeviceChangedEvent for the sink")
	}

	select {
	case e := <-received:
		t.Errorf("unrelated node produced an event: %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan StateChangedEvent, 1)

	unsub := bus.Subscribe(func(e StateChangedEvent) {
		received <- e
	})
	defer unsub()

	event := StateChangedEvent{
		State:     "steady",
		Previous:  "init",
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.State != event.State || got.Previous != event.Previous {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan FormatNegotiatedEvent, 1)
	received2 := make(chan FormatNegotiatedEvent, 1)

	unsub1 := bus.Subscribe(func(e FormatNegotiatedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e FormatNegotiatedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(FormatNegotiatedEvent{Width: 640, Height: 480, FourCC: "YUYV"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan DeviceChangedEvent, 1)

	unsub := bus.Subscribe(func(e DeviceChangedEvent) {
		received <- e
	})

	bus.Publish(DeviceChangedEvent{DevicePath: "/dev/video0", Action: "remove"})
	<-received

	unsub()

	bus.Publish(DeviceChangedEvent{DevicePath: "/dev/video1", Action: "remove"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	stateReceived := make(chan bool, 1)
	transformReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ StateChangedEvent) {
		stateReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ TransformChangedEvent) {
		transformReceived <- true
	})
	defer unsub2()

	bus.Publish(StateChangedEvent{State: "init"})
	<-stateReceived

	select {
	case <-transformReceived:
		t.Fatal("Transform subscriber should NOT have received StateChangedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(TransformChangedEvent{Name: "passthrough"})
	<-transformReceived

	select {
	case <-stateReceived:
		t.Fatal("State subscriber should NOT have received TransformChangedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ DeviceChangedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(DeviceChangedEvent{
					Action:    "change",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_UnknownHandlerIsNoop(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("Subscribe must always return an unsubscribe function")
	}
	unsub()
}

func TestForward(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := Forward[TransformChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(TransformChangedEvent{Name: "passthrough"})

	select {
	case got := <-ch:
		ev, ok := got.(TransformChangedEvent)
		if !ok || ev.Name != "passthrough" {
			t.Errorf("Expected TransformChangedEvent{passthrough}, got %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for forwarded event")
	}
}

func TestForward_DropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	ch <- "occupied"

	delivered := make(chan struct{}, 1)
	unsub := Forward[StateChangedEvent](bus, ch)
	defer unsub()
	unsubDelivered := bus.Subscribe(func(StateChangedEvent) { delivered <- struct{}{} })
	defer unsubDelivered()

	bus.Publish(StateChangedEvent{State: "steady"})

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for publish")
	}
	// The full channel keeps its original value.
	time.Sleep(10 * time.Millisecond)
	if len(ch) != 1 || <-ch != "occupied" {
		t.Error("Forward must not block or replace queued values")
	}
}

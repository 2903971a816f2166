package bus

import (
	"testing"
)

// TestEmitDelivery verifies handlers receive events with payloads intact.
func TestEmitDelivery(t *testing.T) {
	b := New(nil)

	var got []Event
	b.Subscribe(EventSensorUpdate, func(evt Event) {
		got = append(got, evt)
	})

	b.Emit(EventSensorUpdate, map[string]any{"device_id": "dev_1", "value": 22.5})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Type != EventSensorUpdate {
		t.Errorf("Type = %q, want %q", got[0].Type, EventSensorUpdate)
	}
	if got[0].Payload["device_id"] != "dev_1" {
		t.Errorf("device_id = %v, want dev_1", got[0].Payload["device_id"])
	}
	if got[0].Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

// TestEmitOrder verifies subscribers run in registration order.
func TestEmitOrder(t *testing.T) {
	b := New(nil)

	var order []int
	for i := 1; i <= 5; i++ {
		i := i
		b.Subscribe("test_event", func(Event) {
			order = append(order, i)
		})
	}

	b.Emit("test_event", nil)

	want := []int{1, 2, 3, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("delivery %d = handler %d, want %d", i, order[i], want[i])
		}
	}
}

// TestEmitNoSubscribers verifies emitting to an empty type is a no-op.
func TestEmitNoSubscribers(t *testing.T) {
	b := New(nil)
	b.Emit("nobody_listening", map[string]any{"x": 1})
}

// TestEmitTypeIsolation verifies subscribers only see their own type.
func TestEmitTypeIsolation(t *testing.T) {
	b := New(nil)

	var sensorCount, actuatorCount int
	b.Subscribe(EventSensorUpdate, func(Event) { sensorCount++ })
	b.Subscribe(EventActuatorUpdate, func(Event) { actuatorCount++ })

	b.Emit(EventSensorUpdate, nil)
	b.Emit(EventSensorUpdate, nil)
	b.Emit(EventActuatorUpdate, nil)

	if sensorCount != 2 {
		t.Errorf("sensor handler ran %d times, want 2", sensorCount)
	}
	if actuatorCount != 1 {
		t.Errorf("actuator handler ran %d times, want 1", actuatorCount)
	}
}

// TestPanicIsolation verifies a panicking handler does not stop delivery
// to later handlers.
func TestPanicIsolation(t *testing.T) {
	b := New(nil)

	var before, after bool
	b.Subscribe("test_event", func(Event) { before = true })
	b.Subscribe("test_event", func(Event) { panic("handler blew up") })
	b.Subscribe("test_event", func(Event) { after = true })

	b.Emit("test_event", nil)

	if !before {
		t.Error("handler before the panic did not run")
	}
	if !after {
		t.Error("handler after the panic did not run")
	}
}

// TestUnsubscribe verifies removed handlers no longer receive events.
func TestUnsubscribe(t *testing.T) {
	b := New(nil)

	var count int
	sub := b.Subscribe("test_event", func(Event) { count++ })

	b.Emit("test_event", nil)
	b.Unsubscribe(sub)
	b.Emit("test_event", nil)

	if count != 1 {
		t.Errorf("handler ran %d times, want 1", count)
	}
}

// TestUnsubscribeUnknown verifies unknown tokens are ignored.
func TestUnsubscribeUnknown(t *testing.T) {
	b := New(nil)
	b.Subscribe("test_event", func(Event) {})

	b.Unsubscribe(nil)
	b.Unsubscribe(&Subscription{eventType: "test_event", id: 999})
	b.Unsubscribe(&Subscription{eventType: "other_event", id: 1})

	if got := b.SubscriberCount("test_event"); got != 1 {
		t.Errorf("SubscriberCount = %d, want 1", got)
	}
}

// TestReentrantEmit verifies a handler may emit further events during
// delivery, and that those are delivered before the outer Emit returns.
func TestReentrantEmit(t *testing.T) {
	b := New(nil)

	var inner bool
	b.Subscribe(EventActuatorUpdate, func(Event) { inner = true })
	b.Subscribe(EventSensorUpdate, func(Event) {
		b.Emit(EventActuatorUpdate, nil)
	})

	b.Emit(EventSensorUpdate, nil)

	if !inner {
		t.Error("nested emit was not delivered")
	}
}

// TestSubscribeDuringDispatch verifies subscription changes made by a
// handler take effect on the next emit, not the current one.
func TestSubscribeDuringDispatch(t *testing.T) {
	b := New(nil)

	var lateCount int
	b.Subscribe("test_event", func(Event) {
		if b.SubscriberCount("test_event") == 1 {
			b.Subscribe("test_event", func(Event) { lateCount++ })
		}
	})

	b.Emit("test_event", nil)
	if lateCount != 0 {
		t.Errorf("late handler ran during the emit that registered it")
	}

	b.Emit("test_event", nil)
	if lateCount != 1 {
		t.Errorf("late handler ran %d times on second emit, want 1", lateCount)
	}
}

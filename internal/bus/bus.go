package bus

import (
	"sync"
	"time"
)

// Event types published on the bus.
const (
	// EventSensorUpdate is published when a sensor produces a changed reading.
	EventSensorUpdate = "sensor_update"

	// EventActuatorUpdate is published whenever an actuator command is applied.
	EventActuatorUpdate = "actuator_update"

	// EventRuleTriggered is published when an automation rule fires.
	EventRuleTriggered = "rule_triggered"

	// EventDataReset is published after the store is reset to defaults.
	EventDataReset = "data_reset"
)

// Event is a single message delivered to subscribers.
type Event struct {
	// Type identifies the kind of event, e.g. EventSensorUpdate.
	Type string

	// Timestamp records when the event was emitted (UTC).
	Timestamp time.Time

	// Payload carries event-specific data. Handlers must not mutate it.
	Payload map[string]any
}

// Handler processes a single event. Handlers run synchronously on the
// emitting goroutine; long-running work should be handed off.
type Handler func(evt Event)

// Subscription identifies a registered handler so it can be removed.
// Returned by Subscribe and passed back to Unsubscribe.
type Subscription struct {
	eventType string
	id        uint64
}

// Logger is the minimal logging interface the bus requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type handlerEntry struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous in-process publish/subscribe hub.
//
// Emit delivers the event to every subscriber of the type, in the order
// they subscribed, before returning. A panic in one handler is recovered
// and logged without affecting later handlers. Handlers may emit further
// events or change subscriptions from within a delivery.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry
	nextID   uint64
	logger   Logger
}

// New creates an event bus. Pass nil to disable logging.
func New(logger Logger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		handlers: make(map[string][]handlerEntry),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type and returns a
// subscription token for later removal.
func (b *Bus) Subscribe(eventType string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], handlerEntry{id: id, handler: h})

	b.logger.Debug("subscriber registered", "event_type", eventType, "subscription_id", id)
	return &Subscription{eventType: eventType, id: id}
}

// Unsubscribe removes a previously registered handler. Unknown or
// already-removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[sub.eventType]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.eventType] = append(entries[:i:i], entries[i+1:]...)
			b.logger.Debug("subscriber removed", "event_type", sub.eventType, "subscription_id", sub.id)
			return
		}
	}
}

// Emit delivers an event to all subscribers of the type, synchronously
// and in subscription order. The handler list is snapshotted before
// delivery, so subscription changes made by handlers take effect on the
// next emit.
func (b *Bus) Emit(eventType string, payload map[string]any) {
	b.mu.RLock()
	entries := b.handlers[eventType]
	snapshot := make([]handlerEntry, len(entries))
	copy(snapshot, entries)
	b.mu.RUnlock()

	evt := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	for _, e := range snapshot {
		b.deliver(e, evt)
	}
}

// deliver invokes a single handler, isolating panics so one faulty
// subscriber cannot break the rest of the chain.
func (b *Bus) deliver(e handlerEntry, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", evt.Type,
				"subscription_id", e.id,
				"panic", r,
			)
		}
	}()
	e.handler(evt)
}

// SubscriberCount returns the number of handlers registered for an
// event type. Intended for diagnostics.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

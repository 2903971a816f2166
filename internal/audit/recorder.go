package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthhome/hearth-core/internal/bus"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder turns bus events into audit log entries, one entry per
// event, appended synchronously inside the emit. Subscribe its three
// Handle methods to the matching event types.
//
// Append failures are logged and swallowed; the audit trail degrades
// rather than disturbing the emitting component.
type Recorder struct {
	repo   Repository
	logger Logger
	now    func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the recorder's diagnostic logger.
func WithLogger(logger Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// WithClock sets the time source. Tests inject a fixed clock.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates an audit recorder.
func NewRecorder(repo Repository, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		repo:   repo,
		logger: noopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers the recorder on the bus for all three event
// kinds it records.
func (r *Recorder) Subscribe(b *bus.Bus) {
	b.Subscribe(bus.EventSensorUpdate, r.HandleSensorUpdate)
	b.Subscribe(bus.EventActuatorUpdate, r.HandleActuatorUpdate)
	b.Subscribe(bus.EventRuleTriggered, r.HandleRuleTriggered)
}

// HandleSensorUpdate records one sensor reading.
func (r *Recorder) HandleSensorUpdate(evt bus.Event) {
	r.append(&LogEntry{
		Type:    EntrySensor,
		Source:  payloadString(evt.Payload, "device_name", "Unknown"),
		Message: fmt.Sprintf("Sensor %v: %v", payloadAny(evt.Payload, "type", "unknown"), payloadAny(evt.Payload, "value", "N/A")),
	})
}

// HandleActuatorUpdate records one actuator command.
func (r *Recorder) HandleActuatorUpdate(evt bus.Event) {
	r.append(&LogEntry{
		Type:    EntryActuator,
		Source:  payloadString(evt.Payload, "device_name", "Unknown"),
		Message: fmt.Sprintf("Device %v: %v", payloadAny(evt.Payload, "action", "unknown"), payloadAny(evt.Payload, "state", "{}")),
	})
}

// HandleRuleTriggered records one rule firing.
func (r *Recorder) HandleRuleTriggered(evt bus.Event) {
	r.append(&LogEntry{
		Type:   EntryRule,
		Source: payloadString(evt.Payload, "rule_name", "Unknown Rule"),
		Message: fmt.Sprintf("Rule fired: %v on device %v",
			payloadAny(evt.Payload, "action", "unknown"), payloadAny(evt.Payload, "device_id", "unknown")),
	})
}

// System records a free-form operator-visible line (startup, resets).
func (r *Recorder) System(message string) {
	r.append(&LogEntry{
		Type:    EntrySystem,
		Source:  "System",
		Message: message,
	})
}

func (r *Recorder) append(entry *LogEntry) {
	entry.Timestamp = r.now().UTC()
	if err := r.repo.Append(context.Background(), entry); err != nil {
		r.logger.Error("appending audit entry failed", "type", entry.Type, "error", err)
	}
}

func payloadString(p map[string]any, key, fallback string) string {
	if s, ok := p[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func payloadAny(p map[string]any, key string, fallback any) any {
	if v, ok := p[key]; ok && v != nil {
		return v
	}
	return fallback
}

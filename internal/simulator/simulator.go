package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/hearthhome/hearth-core/internal/bus"
	"github.com/hearthhome/hearth-core/internal/device"
)

// Actuator command actions.
const (
	ActionOn       = "on"
	ActionOff      = "off"
	ActionSetLevel = "set_level"
)

// Bus is the event emission interface the simulator requires.
type Bus interface {
	Emit(eventType string, payload map[string]any)
}

// StateWriter persists device state changes. Satisfied by *device.Registry.
type StateWriter interface {
	SetDeviceState(ctx context.Context, id string, state device.State) error
}

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

// DeviceSimulator drives one device. Sensors run a periodic tick that
// generates readings; actuators sit idle until a control call arrives.
//
// State mutation and persistence happen under the Manager's state
// mutex, which is released before any event is emitted. A stopped
// simulator refuses tick and control calls, so a caller holding a
// stale reference past RemoveDevice cannot emit for a dead device.
type DeviceSimulator struct {
	dev    *device.Device
	gen    *generators
	events Bus
	states StateWriter
	logger Logger
	now    func() time.Time

	mu       *sync.Mutex // Manager state mutex, shared
	dispatch *sync.Mutex // Manager dispatch mutex, shared
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Device returns a copy of the simulator's current view of its device.
func (s *DeviceSimulator) Device() *device.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.DeepCopy()
}

// start launches the periodic tick goroutine for sensors. Actuators
// have no timer.
func (s *DeviceSimulator) start(ctx context.Context) {
	if s.dev.Category != device.CategorySensor {
		return
	}

	interval := s.interval
	if interval <= 0 {
		interval = device.DefaultUpdateInterval * time.Millisecond
	}
	if s.dev.Config != nil && s.dev.Config.UpdateInterval >= 1 {
		interval = time.Duration(s.dev.Config.UpdateInterval) * time.Millisecond
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.dispatch.Lock()
				s.tick(ctx)
				s.dispatch.Unlock()
			}
		}
	}()
}

// stop halts the tick timer. Safe to call multiple times. Changing a
// sensor's interval or mode requires recreating the simulator; there is
// no live timer reset.
func (s *DeviceSimulator) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// stopped reports whether stop has been called.
func (s *DeviceSimulator) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// tick generates one reading and, when it differs from the previous
// stored value, persists it and emits sensor_update. The emission
// happens outside the state mutex so handlers on the bus may call back
// into the Manager.
func (s *DeviceSimulator) tick(ctx context.Context) {
	payload, ok := s.generate(ctx)
	if !ok {
		return
	}
	s.events.Emit(bus.EventSensorUpdate, payload)
}

func (s *DeviceSimulator) generate(ctx context.Context) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped() || s.dev.Category != device.CategorySensor {
		return nil, false
	}

	mode := device.ModeRandom
	if s.dev.Config != nil {
		mode = s.dev.Config.Mode
	}

	value, ok := s.gen.next(s.dev.Type, mode)
	if !ok {
		return nil, false
	}

	// Change gating: identical consecutive readings produce no event
	// and no write.
	if valuesEqual(s.dev.State.Value, value) {
		return nil, false
	}

	now := s.now().UTC()
	s.dev.State.Value = value
	s.dev.LastSeen = &now

	if err := s.states.SetDeviceState(ctx, s.dev.ID, s.dev.State); err != nil {
		s.logger.Error("persisting sensor state failed", "device_id", s.dev.ID, "error", err)
	}

	return map[string]any{
		"device_id":   s.dev.ID,
		"device_name": s.dev.Name,
		"type":        s.dev.Type,
		"value":       value,
		"room_id":     s.dev.RoomID,
	}, true
}

// control applies an actuator command. Recognised actions mutate state;
// anything else leaves state untouched. Either way the command updates
// last_seen and emits actuator_update, with no change gating. Control
// calls on sensors and stopped simulators are ignored.
func (s *DeviceSimulator) control(ctx context.Context, action string, value any) {
	payload, ok := s.apply(ctx, action, value)
	if !ok {
		return
	}
	s.events.Emit(bus.EventActuatorUpdate, payload)
}

func (s *DeviceSimulator) apply(ctx context.Context, action string, value any) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped() || s.dev.Category != device.CategoryActuator {
		return nil, false
	}

	switch action {
	case ActionOn:
		powered := true
		s.dev.State.Powered = &powered
	case ActionOff:
		powered := false
		s.dev.State.Powered = &powered
	case ActionSetLevel:
		if level, ok := toFloat(value); ok {
			s.dev.State.Level = &level
		}
	}

	now := s.now().UTC()
	s.dev.LastSeen = &now

	if err := s.states.SetDeviceState(ctx, s.dev.ID, s.dev.State); err != nil {
		s.logger.Error("persisting actuator state failed", "device_id", s.dev.ID, "error", err)
	}

	return map[string]any{
		"device_id":   s.dev.ID,
		"device_name": s.dev.Name,
		"type":        s.dev.Type,
		"action":      action,
		"value":       value,
		"state":       s.dev.State.DeepCopy(),
		"room_id":     s.dev.RoomID,
	}, true
}

// valuesEqual compares two readings with exact equality. Readings are
// float64, bool, or nil, all comparable.
func valuesEqual(a, b any) bool {
	return a == b
}

// toFloat coerces numeric command values. Missing or non-numeric
// values report false, which makes set_level a no-op.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

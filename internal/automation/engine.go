package automation

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hearthhome/hearth-core/internal/bus"
	"github.com/hearthhome/hearth-core/internal/device"
)

// Bus is the event emission interface the engine requires.
type Bus interface {
	Emit(eventType string, payload map[string]any)
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

// snapshot holds the rules and devices the engine evaluates against.
// Both are always replaced together so a rule can never be evaluated
// against a device map from a different generation.
type snapshot struct {
	rules   []Rule
	devices map[string]device.Device
}

// Engine evaluates automation rules against incoming sensor events.
//
// It holds an immutable snapshot of rules and devices, refreshed
// wholesale by SetSnapshot whenever the stored rules or devices change.
// The engine never commands actuators itself: a matching rule emits
// rule_triggered, which the simulator manager consumes.
type Engine struct {
	events Bus
	logger Logger
	now    func() time.Time

	mu   sync.RWMutex
	snap snapshot
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithClock sets the time source used for window checks. Tests inject
// a fixed clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an automation engine. Subscribe HandleSensorUpdate
// to bus.EventSensorUpdate to activate it.
func NewEngine(events Bus, opts ...EngineOption) *Engine {
	e := &Engine{
		events: events,
		logger: noopLogger{},
		now:    time.Now,
		snap:   snapshot{devices: make(map[string]device.Device)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSnapshot replaces the engine's rules and devices atomically.
// Rules evaluate in the order given. Call after any rule or device
// mutation; there is no incremental update.
func (e *Engine) SetSnapshot(rules []Rule, devices []device.Device) {
	rulesCopy := make([]Rule, len(rules))
	for i := range rules {
		rulesCopy[i] = *rules[i].DeepCopy()
	}
	devicesCopy := make(map[string]device.Device, len(devices))
	for i := range devices {
		d := devices[i]
		devicesCopy[d.ID] = *d.DeepCopy()
	}

	e.mu.Lock()
	e.snap = snapshot{rules: rulesCopy, devices: devicesCopy}
	e.mu.Unlock()

	e.logger.Debug("automation snapshot replaced", "rules", len(rulesCopy), "devices", len(devicesCopy))
}

// HandleSensorUpdate evaluates every enabled rule against one sensor
// event. All matching rules fire independently; there is no
// first-match short circuit and no conflict resolution between rules
// targeting the same actuator.
func (e *Engine) HandleSensorUpdate(evt bus.Event) {
	deviceID, _ := evt.Payload["device_id"].(string)
	value, hasValue := evt.Payload["value"]
	if deviceID == "" || !hasValue || value == nil {
		return
	}

	e.mu.RLock()
	snap := e.snap
	e.mu.RUnlock()

	for i := range snap.rules {
		rule := &snap.rules[i]
		if !rule.Enabled || rule.IfSensorID != deviceID {
			continue
		}
		if !checkCondition(rule, value) {
			continue
		}
		if !checkTimeWindow(rule.TimeWindow, e.now()) {
			continue
		}
		e.executeAction(rule, snap.devices)
	}
}

// executeAction emits rule_triggered for the rule's target actuator.
// A missing target or a non-actuator target is silently skipped.
func (e *Engine) executeAction(rule *Rule, devices map[string]device.Device) {
	target, ok := devices[rule.ThenDeviceID]
	if !ok || target.Category != device.CategoryActuator {
		e.logger.Debug("rule target unusable, skipping",
			"rule_id", rule.ID, "device_id", rule.ThenDeviceID)
		return
	}

	var actionValue any
	if rule.ActionValue != nil {
		actionValue = *rule.ActionValue
	}

	e.events.Emit(bus.EventRuleTriggered, map[string]any{
		"rule_id":      rule.ID,
		"rule_name":    rule.Name,
		"device_id":    rule.ThenDeviceID,
		"action":       rule.Action,
		"action_value": actionValue,
	})
}

// checkCondition evaluates the rule's condition against a sensor value.
func checkCondition(rule *Rule, sensorValue any) bool {
	switch rule.Condition {
	case ConditionTriggered, ConditionOpened:
		return truthy(sensorValue)

	case ConditionGreater:
		if rule.Value == nil {
			return false
		}
		n, ok := toNumber(sensorValue)
		return ok && n > *rule.Value

	case ConditionLess:
		if rule.Value == nil {
			return false
		}
		n, ok := toNumber(sensorValue)
		return ok && n < *rule.Value

	case ConditionEqual:
		if rule.Value == nil {
			return false
		}
		if n, ok := toNumber(sensorValue); ok {
			return n == *rule.Value
		}
		// Non-numeric sensor values fall back to string comparison.
		return fmt.Sprint(sensorValue) == strconv.FormatFloat(*rule.Value, 'f', -1, 64)
	}

	return false
}

// checkTimeWindow reports whether now falls inside the window. The
// comparison is lexicographic on "HH:MM" strings; a window whose start
// is after its end spans midnight. No window means always satisfied.
func checkTimeWindow(tw *TimeWindow, now time.Time) bool {
	if tw == nil {
		return true
	}

	current := now.Format("15:04")
	start := tw.Start
	if start == "" {
		start = "00:00"
	}
	end := tw.End
	if end == "" {
		end = "23:59"
	}

	if start <= end {
		return start <= current && current <= end
	}
	return current >= start || current <= end
}

// truthy mirrors a loose boolean cast: false, 0, "", and nil are
// false, everything else is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case string:
		return val != ""
	case nil:
		return false
	}
	return true
}

// toNumber coerces a sensor value to float64. Booleans count as 1 and
// 0; numeric strings parse.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

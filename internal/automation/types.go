package automation

import (
	"time"

	"github.com/google/uuid"
)

// Condition strings accepted by the engine. Anything else evaluates
// false.
const (
	ConditionGreater   = ">"
	ConditionLess      = "<"
	ConditionEqual     = "=="
	ConditionTriggered = "triggered"
	ConditionOpened    = "opened"
)

// Rule binds one sensor condition to one actuator action.
//
// References are not validated at creation time; a rule pointing at a
// missing device or a non-actuator simply never fires.
type Rule struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	// Trigger clause
	IfSensorID string      `json:"if_sensor_id"`
	Condition  string      `json:"condition"`
	Value      *float64    `json:"value,omitempty"`
	TimeWindow *TimeWindow `json:"time_window,omitempty"`

	// Action clause
	ThenDeviceID string   `json:"then_device_id"`
	Action       string   `json:"action"`
	ActionValue  *float64 `json:"action_value,omitempty"`

	// Position fixes evaluation order: rules fire in ascending
	// position, which is their insertion order.
	Position int `json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates an independent copy of the rule.
func (r *Rule) DeepCopy() *Rule {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.Value != nil {
		v := *r.Value
		cpy.Value = &v
	}
	if r.ActionValue != nil {
		v := *r.ActionValue
		cpy.ActionValue = &v
	}
	if r.TimeWindow != nil {
		tw := *r.TimeWindow
		cpy.TimeWindow = &tw
	}
	return &cpy
}

// TimeWindow restricts a rule to part of the day. Start and End are
// "HH:MM" strings compared lexicographically against the local clock;
// Start > End means the window spans midnight.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GenerateID creates a new unique rule identifier.
func GenerateID() string {
	return "rule-" + uuid.NewString()
}

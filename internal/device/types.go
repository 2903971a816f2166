package device

import (
	"time"

	"github.com/google/uuid"
)

// Device represents a simulated sensor or actuator in the home.
// This matches the database schema in migrations/20250614_090000_initial_schema.up.sql.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Location
	RoomID string `json:"room_id"`

	// Classification. Category is immutable after creation; the
	// simulator binds generator or executor behaviour to it when the
	// device's simulator instance is constructed.
	Category Category `json:"category"`
	Type     string   `json:"type"`

	// Current state. Shape depends on Category: sensors carry Value,
	// actuators carry Powered and optionally Level.
	State State `json:"state"`

	// Config holds sensor generation parameters. Nil for actuators.
	Config *SensorConfig `json:"config,omitempty"`

	// LastSeen is the time of the last emitted update or applied command.
	LastSeen *time.Time `json:"last_seen,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// Pointer fields are cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields
	cpy.State = d.State.DeepCopy()

	if d.Config != nil {
		cfg := *d.Config
		cpy.Config = &cfg
	}
	if d.LastSeen != nil {
		ls := *d.LastSeen
		cpy.LastSeen = &ls
	}

	return &cpy
}

// State holds the current device state. Exactly one shape is populated
// per category:
//
//   - Sensor: {"value": 21.5} (number or boolean)
//   - Actuator: {"powered": true, "level": 75}
type State struct {
	// Value is the last sensor reading (float64 or bool). Nil until the
	// first tick produces one. No omitempty: false and 0 are real readings.
	Value any `json:"value"`

	// Powered is the actuator on/off state. Nil for sensors.
	Powered *bool `json:"powered,omitempty"`

	// Level is the optional actuator level, set by set_level commands.
	Level *float64 `json:"level,omitempty"`
}

// DeepCopy returns an independent copy of the state.
func (s State) DeepCopy() State {
	cpy := s
	if s.Powered != nil {
		p := *s.Powered
		cpy.Powered = &p
	}
	if s.Level != nil {
		l := *s.Level
		cpy.Level = &l
	}
	return cpy
}

// IsPowered reports the actuator powered flag, false when unset.
func (s State) IsPowered() bool {
	return s.Powered != nil && *s.Powered
}

// NewSensorState builds the initial state for a sensor device.
func NewSensorState(value any) State {
	return State{Value: value}
}

// NewActuatorState builds the initial state for an actuator device,
// powered off.
func NewActuatorState() State {
	powered := false
	return State{Powered: &powered}
}

// SensorConfig holds the generation parameters for a sensor device.
type SensorConfig struct {
	// UpdateInterval is the tick period in milliseconds, minimum 1.
	UpdateInterval int `json:"update_interval"`

	// Mode selects the value generation strategy.
	Mode Mode `json:"mode"`
}

// Category distinguishes read-only sensors from controllable actuators.
type Category string

// Category constants.
const (
	CategorySensor   Category = "sensor"
	CategoryActuator Category = "actuator"
)

// AllCategories returns all valid category values.
func AllCategories() []Category {
	return []Category{CategorySensor, CategoryActuator}
}

// Mode represents a sensor value generation strategy.
type Mode string

// Mode constants.
const (
	// ModeRandom draws each reading uniformly from the type's range.
	ModeRandom Mode = "random"

	// ModeSmooth applies a bounded random walk to the previous reading.
	ModeSmooth Mode = "smooth"

	// ModeManual draws each reading the same way as random; the value
	// exists so stored configs carry it, the generators make no
	// distinction.
	ModeManual Mode = "manual"
)

// AllModes returns all valid mode values.
func AllModes() []Mode {
	return []Mode{ModeRandom, ModeSmooth, ModeManual}
}

// Well-known device type strings. Type is free-form; these are the
// values the simulator has generators or executors for.
const (
	TypeTemperature = "temperature"
	TypeHumidity    = "humidity"
	TypeMotion      = "motion"
	TypeLight       = "light"
	TypeDoor        = "door"
	TypeKettle      = "kettle"
	TypeFan         = "fan"
	TypeHeater      = "heater"
)

// DefaultUpdateInterval is the sensor tick period used when none is
// configured, in milliseconds.
const DefaultUpdateInterval = 2000

// GenerateID creates a new unique device identifier.
func GenerateID() string {
	return "dev-" + uuid.NewString()
}

// Package simulator generates sensor readings and executes actuator
// commands for the virtual devices.
//
// Each sensor gets its own timer goroutine whose period comes from the
// device's update_interval. Every tick runs a per-type generator
// (temperature, humidity, motion, light, door) and emits sensor_update
// only when the reading differs from the previously stored value.
// Actuators have no timer; they apply on/off/set_level commands and
// emit actuator_update on every command, changed or not.
//
// The Manager serializes all tick and command processing behind one
// mutex, which gives the rest of the system single-threaded semantics:
// a sensor tick, the rules it triggers, and the actuator changes those
// rules cause all complete before anything else runs.
package simulator

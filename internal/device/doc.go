// Package device defines the domain model for simulated devices and
// provides their persistence and cached registry.
//
// A device is either a sensor (periodic readings generated by the
// simulator package) or an actuator (state changed only by explicit
// commands). The category is fixed when the device is created because
// the simulator binds generator or executor behaviour to it.
//
// The Registry wraps a Repository with an in-memory cache of deep
// copies, so reads on the tick path never hit the database and callers
// can never mutate cached entries.
package device

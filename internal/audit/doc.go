// Package audit maintains the bounded rolling log of simulation
// activity: one entry per sensor update, actuator command, and rule
// firing, plus free-form system lines.
//
// The persisted collection is capped at MaxEntries; every append
// evicts the oldest overflow. This is the user-facing audit trail,
// distinct from the process diagnostics in infrastructure/logging.
package audit

// Package automation implements the if-then rule engine and rule
// persistence.
//
// The engine consumes sensor_update events and emits rule_triggered
// for every enabled rule whose condition and optional time window are
// satisfied. Execution is decoupled: the simulator manager, not the
// engine, turns rule_triggered into actuator commands.
package automation

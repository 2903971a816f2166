// Package bus implements the synchronous in-process event bus that
// connects the simulator, automation engine, audit log, and API layer.
//
// Delivery is deliberately synchronous and ordered: when Emit returns,
// every subscriber has seen the event. This keeps causality simple to
// reason about (a sensor update, the rules it triggers, and the
// actuator changes those rules cause all happen before the next tick
// is processed) at the cost of handlers needing to stay fast.
//
// Handlers are isolated from each other: a panic in one subscriber is
// recovered and logged, and delivery continues with the next.
package bus

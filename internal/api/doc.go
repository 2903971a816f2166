// Package api implements the HTTP REST API and WebSocket server for Hearth Core.
//
// This package provides:
//   - REST endpoints for room, device, rule, audit log, and settings CRUD
//   - Actuator control commands routed through the simulator manager
//   - WebSocket hub for real-time event broadcasts
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Architecture
//
// The API server sits between user interfaces and the domain layer. Device
// commands flow through the simulator manager so that state changes,
// persistence, and event emission stay serialized with the simulation loop.
// Events flow back over the internal bus and are broadcast to WebSocket
// clients subscribed to the matching channel.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

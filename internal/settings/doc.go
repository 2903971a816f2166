// Package settings persists the application settings singleton: the
// execution mode and the MQTT broker parameters kept for the remote
// mode that has no backend yet.
package settings

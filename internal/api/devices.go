package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthhome/hearth-core/internal/device"
)

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - room_id: filter by room
//   - category: filter by category (sensor, actuator)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if roomID := r.URL.Query().Get("room_id"); roomID != "" {
		devices, err := s.registry.GetDevicesByRoom(ctx, roomID)
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	if categoryStr := r.URL.Query().Get("category"); categoryStr != "" {
		devices, err := s.registry.GetDevicesByCategory(ctx, device.Category(categoryStr))
		if err != nil {
			writeInternalError(w, "failed to list devices")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
		return
	}

	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device and starts its simulator.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var dev device.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.CreateDevice(ctx, &dev); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceExists):
			writeConflict(w, "device already exists")
		case errors.Is(err, device.ErrInvalidDevice):
			writeValidationError(w, err.Error())
		default:
			writeInternalError(w, "failed to create device")
		}
		return
	}

	s.manager.AddDevice(&dev)
	s.refreshSnapshot(ctx)

	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice partially updates a device. The simulator is restarted
// with the new configuration.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	existing, err := s.registry.GetDevice(ctx, id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.registry.UpdateDevice(ctx, existing); err != nil {
		switch {
		case errors.Is(err, device.ErrCategoryImmutable):
			writeValidationError(w, "device category cannot be changed")
		case errors.Is(err, device.ErrInvalidDevice):
			writeValidationError(w, err.Error())
		default:
			writeInternalError(w, "failed to update device")
		}
		return
	}

	s.manager.AddDevice(existing)
	s.refreshSnapshot(ctx)

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device and stops its simulator.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.registry.DeleteDevice(ctx, id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to delete device")
		return
	}

	s.manager.RemoveDevice(id)
	s.refreshSnapshot(ctx)

	w.WriteHeader(http.StatusNoContent)
}

// controlRequest is the body for POST /devices/{id}/control.
type controlRequest struct {
	Action string `json:"action"`
	Value  any    `json:"value,omitempty"`
}

// handleControlDevice applies an actuator command to a device.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Action == "" {
		writeBadRequest(w, "action is required")
		return
	}

	dev, err := s.registry.GetDevice(ctx, id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}
	if dev.Category != device.CategoryActuator {
		writeBadRequest(w, "only actuators accept control commands")
		return
	}

	s.manager.ControlDevice(id, req.Action, req.Value)

	updated, err := s.registry.GetDevice(ctx, id)
	if err != nil {
		writeInternalError(w, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

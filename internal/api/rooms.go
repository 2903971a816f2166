package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthhome/hearth-core/internal/device"
	"github.com/hearthhome/hearth-core/internal/location"
)

// handleListRooms returns all rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.locationRepo.ListRooms(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

// handleGetRoom returns a single room by ID.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	room, err := s.locationRepo.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, location.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return
		}
		writeInternalError(w, "failed to get room")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleCreateRoom creates a new room.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var room location.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.locationRepo.CreateRoom(r.Context(), &room); err != nil {
		switch {
		case errors.Is(err, location.ErrRoomExists):
			writeConflict(w, "room already exists")
		case errors.Is(err, location.ErrInvalidRoom):
			writeValidationError(w, err.Error())
		default:
			writeInternalError(w, "failed to create room")
		}
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// handleUpdateRoom partially updates a room.
func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.locationRepo.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, location.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return
		}
		writeInternalError(w, "failed to get room")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.locationRepo.UpdateRoom(r.Context(), existing); err != nil {
		if errors.Is(err, location.ErrInvalidRoom) {
			writeValidationError(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update room")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteRoom removes a room by ID. Devices in the room are removed
// with it, so their simulators are stopped and the engine snapshot is
// refreshed.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	devices, err := s.registry.GetDevicesByRoom(ctx, id)
	if err != nil {
		writeInternalError(w, "failed to list room devices")
		return
	}

	if err := s.locationRepo.DeleteRoom(ctx, id); err != nil {
		if errors.Is(err, location.ErrRoomNotFound) {
			writeNotFound(w, "room not found")
			return
		}
		writeInternalError(w, "failed to delete room")
		return
	}

	// A room takes its devices with it.
	for _, dev := range devices {
		if err := s.registry.DeleteDevice(ctx, dev.ID); err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
			s.logger.Warn("device cleanup after room delete failed", "device_id", dev.ID, "error", err)
		}
		s.manager.RemoveDevice(dev.ID)
	}
	s.refreshSnapshot(ctx)

	w.WriteHeader(http.StatusNoContent)
}

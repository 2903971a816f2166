package api

import (
	"net/http"
)

// handleSystemReset restores the demo dataset: all rooms, devices, rules,
// logs, and settings are replaced with the defaults, and simulators are
// restarted for the seeded devices.
func (s *Server) handleSystemReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.seeder == nil {
		writeInternalError(w, "reset is not available")
		return
	}

	s.manager.StopAll()

	if err := s.seeder.Reset(ctx); err != nil {
		s.logger.Error("factory reset failed", "error", err)
		writeInternalError(w, "failed to reset data")
		return
	}

	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		writeInternalError(w, "failed to reload devices after reset")
		return
	}
	for i := range devices {
		s.manager.AddDevice(&devices[i])
	}
	s.refreshSnapshot(ctx)

	if s.recorder != nil {
		s.recorder.System("Data reset to default state")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reset",
		"devices": len(devices),
	})
}

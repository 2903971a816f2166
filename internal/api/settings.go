package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hearthhome/hearth-core/internal/settings"
)

// handleGetSettings returns the current application settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	current, err := s.settingsRepo.Get(r.Context())
	if err != nil {
		writeInternalError(w, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// handleUpdateSettings replaces the application settings.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updated settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.settingsRepo.Update(r.Context(), updated); err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			writeValidationError(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

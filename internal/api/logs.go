package api

import (
	"net/http"
	"strconv"

	"github.com/hearthhome/hearth-core/internal/audit"
)

// handleListLogs returns audit log entries, newest first.
//
// Query parameters:
//   - limit: maximum entries to return (default and cap: 1000)
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := audit.MaxEntries
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.auditRepo.List(r.Context(), limit)
	if err != nil {
		writeInternalError(w, "failed to list log entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// handleClearLogs deletes all audit log entries.
func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.auditRepo.DeleteAll(r.Context())
	if err != nil {
		writeInternalError(w, "failed to clear log entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hearthhome/hearth-core/internal/automation"
)

// handleListRules returns all rules in evaluation order.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.ruleRepo.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list rules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules, "count": len(rules)})
}

// handleGetRule returns a single rule by ID.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := s.ruleRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		writeInternalError(w, "failed to get rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// handleCreateRule creates a new rule and reloads the engine.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rule automation.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if rule.ID == "" {
		rule.ID = automation.GenerateID()
	}

	if err := s.ruleRepo.Create(ctx, &rule); err != nil {
		switch {
		case errors.Is(err, automation.ErrRuleExists):
			writeConflict(w, "rule already exists")
		case errors.Is(err, automation.ErrInvalidRule):
			writeValidationError(w, err.Error())
		default:
			writeInternalError(w, "failed to create rule")
		}
		return
	}

	s.refreshSnapshot(ctx)

	writeJSON(w, http.StatusCreated, rule)
}

// handleUpdateRule partially updates a rule and reloads the engine.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	existing, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		writeInternalError(w, "failed to get rule")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.ruleRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, automation.ErrInvalidRule) {
			writeValidationError(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update rule")
		return
	}

	s.refreshSnapshot(ctx)

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteRule removes a rule and reloads the engine.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		writeInternalError(w, "failed to delete rule")
		return
	}

	s.refreshSnapshot(ctx)

	w.WriteHeader(http.StatusNoContent)
}

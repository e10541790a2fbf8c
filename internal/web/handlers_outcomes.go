package web

import (
	"net/http"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// handleAssignments draws a variant for every active test. The caller passes
// no body; the draw happens once per call at call start.
func (s *Server) handleAssignments(w http.ResponseWriter, r *http.Request) {
	active, err := s.registry.Active(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	assignments := s.allocator.Assign(active)
	respondJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

func (s *Server) handleRecordOutcome(w http.ResponseWriter, r *http.Request) {
	var outcome domain.CallOutcome
	if err := decodeJSON(r, &outcome); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := s.aggregator.Record(r.Context(), &outcome); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

package web

import (
	"log"
	"net/http"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

type createTestRequest struct {
	Name         string  `json:"name"`
	VariantAID   string  `json:"variant_a_id"`
	VariantBID   string  `json:"variant_b_id"`
	TrafficSplit float64 `json:"traffic_split"`
}

func (s *Server) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var req createTestRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	test, err := s.registry.Create(r.Context(), req.Name, req.VariantAID, req.VariantBID, req.TrafficSplit)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.metrics.ExportLifecycle(r.Context(), test.Name, "created"); err != nil {
		log.Printf("metrics export failed: %v", err)
	}
	respondJSON(w, http.StatusCreated, test)
}

func (s *Server) handleListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := s.registry.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tests": tests})
}

func (s *Server) handleGetTest(w http.ResponseWriter, r *http.Request) {
	test, err := s.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, test)
}

func (s *Server) handleStopTest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.registry.Stop(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if test, getErr := s.registry.Get(r.Context(), id); getErr == nil {
		if err := s.metrics.ExportLifecycle(r.Context(), test.Name, "stopped"); err != nil {
			log.Printf("metrics export failed: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"test_id":      id,
		"status":       domain.TestStatusStopped,
		"significance": result,
	})
}

func (s *Server) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

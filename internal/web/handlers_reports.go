package web

import (
	"fmt"
	"log"
	"net/http"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reports.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleReport bundles the summary with the per-criterion, per-scenario and
// daily breakdowns in a single response for the dashboard.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	summary, err := s.reports.Summary(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	criteria, err := s.reports.PerCriterion(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	scenarios, err := s.reports.ByScenario(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}
	daily, err := s.reports.Daily(ctx, id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"summary":       summary,
		"per_criterion": criteria,
		"by_scenario":   scenarios,
		"daily":         daily,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Resolve the test first so a missing id yields a JSON 404 instead of a
	// half-written CSV body.
	test, err := s.registry.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", test.Name+".csv"))
	if err := s.reports.WriteCSV(r.Context(), id, w); err != nil {
		// Headers are already out; nothing left to do but log.
		log.Printf("csv export for %s: %v", id, err)
	}
}

// Package web exposes the engine to the admin dashboard as a small JSON/CSV
// API. All rendering and localization happens in the dashboard itself.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/emiliopalmerini/promptlab/internal/aggregator"
	"github.com/emiliopalmerini/promptlab/internal/allocator"
	"github.com/emiliopalmerini/promptlab/internal/ports"
	"github.com/emiliopalmerini/promptlab/internal/registry"
	"github.com/emiliopalmerini/promptlab/internal/report"
)

type Server struct {
	router     *http.ServeMux
	port       int
	registry   *registry.Registry
	allocator  *allocator.Allocator
	aggregator *aggregator.Aggregator
	reports    *report.Builder
	metrics    ports.MetricsExporter
}

func NewServer(
	port int,
	reg *registry.Registry,
	alloc *allocator.Allocator,
	agg *aggregator.Aggregator,
	reports *report.Builder,
	metrics ports.MetricsExporter,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		port:       port,
		registry:   reg,
		allocator:  alloc,
		aggregator: agg,
		reports:    reports,
		metrics:    metrics,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Test lifecycle
	s.router.HandleFunc("POST /api/tests", s.handleCreateTest)
	s.router.HandleFunc("GET /api/tests", s.handleListTests)
	s.router.HandleFunc("GET /api/tests/{id}", s.handleGetTest)
	s.router.HandleFunc("POST /api/tests/{id}/stop", s.handleStopTest)
	s.router.HandleFunc("DELETE /api/tests/{id}", s.handleDeleteTest)

	// Call routing and outcome ingestion
	s.router.HandleFunc("POST /api/assignments", s.handleAssignments)
	s.router.HandleFunc("POST /api/outcomes", s.handleRecordOutcome)

	// Reports
	s.router.HandleFunc("GET /api/tests/{id}/summary", s.handleSummary)
	s.router.HandleFunc("GET /api/tests/{id}/report", s.handleReport)
	s.router.HandleFunc("GET /api/tests/{id}/export.csv", s.handleExportCSV)
}

// Handler returns the full handler chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return requestLog(s.router)
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	fmt.Printf("Starting server at http://localhost:%d\n", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

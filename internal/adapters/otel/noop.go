package otel

import (
	"context"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) ExportOutcome(ctx context.Context, testName string, o *domain.CallOutcome) error {
	return nil
}

func (e *NoOpExporter) ExportLifecycle(ctx context.Context, testName, event string) error {
	return nil
}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}

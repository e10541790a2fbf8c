package ports

import (
	"context"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// MetricsExporter exports engine activity to an external observability system.
type MetricsExporter interface {
	// ExportOutcome exports one recorded call outcome with its test context.
	ExportOutcome(ctx context.Context, testName string, o *domain.CallOutcome) error
	// ExportLifecycle exports a test lifecycle event ("created", "stopped", "deleted").
	ExportLifecycle(ctx context.Context, testName, event string) error
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}

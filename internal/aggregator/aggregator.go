// Package aggregator folds finished call outcomes into test aggregates.
package aggregator

import (
	"context"
	"errors"
	"log"

	"github.com/emiliopalmerini/promptlab/internal/domain"
	"github.com/emiliopalmerini/promptlab/internal/ports"
	"github.com/emiliopalmerini/promptlab/internal/registry"
)

// errSkip aborts a registry mutation without persisting anything.
var errSkip = errors.New("skip")

// Aggregator records call outcomes against the matching test. Folds for the
// same test are linearized by the registry's per-test lock; different tests
// record fully in parallel.
type Aggregator struct {
	registry *registry.Registry
	metrics  ports.MetricsExporter
}

// New creates an aggregator over the registry. metrics may be a no-op
// exporter but must not be nil.
func New(reg *registry.Registry, metrics ports.MetricsExporter) *Aggregator {
	return &Aggregator{registry: reg, metrics: metrics}
}

// Record folds one outcome into its test's aggregate and persists the
// updated record.
//
// Malformed outcomes are logged and rejected with ErrInvalidOutcome; the
// caller owns the retry/drop policy. Outcomes for unknown or non-active
// tests are discarded without error: late arrivals after a stop must never
// mutate frozen aggregates. Replays of an already-seen idempotency key are
// likewise dropped without effect.
func (a *Aggregator) Record(ctx context.Context, o *domain.CallOutcome) error {
	if err := o.Validate(); err != nil {
		log.Printf("aggregator: dropping outcome: %v", err)
		return err
	}

	var testName string
	err := a.registry.Mutate(ctx, o.TestID, func(t *domain.ABTest) error {
		if !t.IsActive() {
			return errSkip
		}
		agg := t.Aggregate(o.Variant)
		if agg.Seen(o.IdempotencyKey) {
			return errSkip
		}
		agg.Apply(o)
		testName = t.Name
		return nil
	})
	if errors.Is(err, errSkip) || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if exportErr := a.metrics.ExportOutcome(ctx, testName, o); exportErr != nil {
		log.Printf("aggregator: metrics export failed: %v", exportErr)
	}
	return nil
}

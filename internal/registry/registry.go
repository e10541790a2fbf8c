package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/promptlab/internal/domain"
	"github.com/emiliopalmerini/promptlab/internal/ports"
)

// Registry owns the lifecycle of every A/B test. State is authoritative in
// memory with write-through persistence: each mutation holds the test's own
// lock, applies the change, and saves the full durable record before the
// lock is released. Different tests mutate fully in parallel.
type Registry struct {
	repo     ports.ABTestRepository
	variants ports.VariantStore
	sigCfg   domain.SignificanceConfig
	now      func() time.Time

	mu    sync.RWMutex
	tests map[string]*managedTest
}

// managedTest pairs a test with its mutation lock. The lock is the unit of
// linearizability: record folds, freezes, and snapshots all go through it.
type managedTest struct {
	mu   sync.Mutex
	test *domain.ABTest
}

// New creates a registry over the given repository and variant store.
func New(repo ports.ABTestRepository, variants ports.VariantStore, sigCfg domain.SignificanceConfig) *Registry {
	return &Registry{
		repo:     repo,
		variants: variants,
		sigCfg:   sigCfg,
		now:      time.Now,
		tests:    make(map[string]*managedTest),
	}
}

// SetClock injects a time source. Intended for tests.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// LoadAll restores every durable test record into memory. Call once at
// startup before serving traffic.
func (r *Registry) LoadAll(ctx context.Context) error {
	tests, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tests: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tests {
		if t.AggregateA == nil {
			t.AggregateA = domain.NewVariantAggregate()
		}
		if t.AggregateB == nil {
			t.AggregateB = domain.NewVariantAggregate()
		}
		r.tests[t.ID] = &managedTest{test: t}
	}
	return nil
}

// Create validates the configuration, registers a new active test with
// zeroed aggregates, and persists it.
func (r *Registry) Create(ctx context.Context, name, variantAID, variantBID string, trafficSplit float64) (*domain.ABTest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: test name must not be empty", domain.ErrInvalidConfig)
	}
	if variantAID == variantBID {
		return nil, fmt.Errorf("%w: variants must differ", domain.ErrInvalidConfig)
	}
	if trafficSplit <= 0 || trafficSplit >= 1 {
		return nil, fmt.Errorf("%w: traffic split %v outside (0,1)", domain.ErrInvalidConfig, trafficSplit)
	}

	variantA, err := r.variants.ResolveVariant(ctx, variantAID)
	if err != nil {
		return nil, fmt.Errorf("%w: variant A %q: %v", domain.ErrInvalidConfig, variantAID, err)
	}
	variantB, err := r.variants.ResolveVariant(ctx, variantBID)
	if err != nil {
		return nil, fmt.Errorf("%w: variant B %q: %v", domain.ErrInvalidConfig, variantBID, err)
	}

	test := &domain.ABTest{
		ID:           uuid.NewString(),
		Name:         name,
		VariantA:     *variantA,
		VariantB:     *variantB,
		TrafficSplit: trafficSplit,
		Status:       domain.TestStatusActive,
		CreatedAt:    r.now().UTC(),
		AggregateA:   domain.NewVariantAggregate(),
		AggregateB:   domain.NewVariantAggregate(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.tests {
		if m.test.Name == name {
			return nil, fmt.Errorf("%w: test name %q already in use", domain.ErrInvalidConfig, name)
		}
	}

	if err := r.repo.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("failed to persist test: %w", err)
	}
	r.tests[test.ID] = &managedTest{test: test}
	return test.Clone(), nil
}

// Stop freezes the test's aggregates, computes and stores significance, and
// transitions it to stopped. It holds the per-test lock for the whole
// freeze so no concurrent record fold can interleave.
func (r *Registry) Stop(ctx context.Context, id string) (*domain.SignificanceResult, error) {
	m, err := r.managed(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.test.IsActive() {
		return nil, fmt.Errorf("%w: test %q has status %s", domain.ErrAlreadyStopped, m.test.Name, m.test.Status)
	}

	sig := domain.ComputeSignificance(m.test.AggregateA, m.test.AggregateB, r.sigCfg)
	stoppedAt := r.now().UTC()
	m.test.Significance = sig
	m.test.Status = domain.TestStatusStopped
	m.test.StoppedAt = &stoppedAt

	if err := r.repo.Update(ctx, m.test); err != nil {
		// Roll back so a retried stop is not rejected as already stopped.
		m.test.Status = domain.TestStatusActive
		m.test.StoppedAt = nil
		m.test.Significance = nil
		return nil, fmt.Errorf("failed to persist stop: %w", err)
	}

	result := *sig
	return &result, nil
}

// Delete removes the test and its aggregates in any lifecycle state.
// Already-recorded outcomes in the feed's own storage are unaffected.
func (r *Registry) Delete(ctx context.Context, id string) error {
	m, err := r.managed(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	r.mu.Lock()
	delete(r.tests, id)
	r.mu.Unlock()
	return nil
}

// Get returns a consistent snapshot of one test.
func (r *Registry) Get(ctx context.Context, id string) (*domain.ABTest, error) {
	m, err := r.managed(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.test.Clone(), nil
}

// GetByName returns a snapshot of the test with the given name.
func (r *Registry) GetByName(ctx context.Context, name string) (*domain.ABTest, error) {
	r.mu.RLock()
	var found *managedTest
	for _, m := range r.tests {
		if m.test.Name == name {
			found = m
			break
		}
	}
	r.mu.RUnlock()

	if found == nil {
		return nil, fmt.Errorf("%w: name %q", domain.ErrNotFound, name)
	}
	found.mu.Lock()
	defer found.mu.Unlock()
	return found.test.Clone(), nil
}

// List returns snapshots of every test, newest first.
func (r *Registry) List(ctx context.Context) ([]*domain.ABTest, error) {
	r.mu.RLock()
	managed := make([]*managedTest, 0, len(r.tests))
	for _, m := range r.tests {
		managed = append(managed, m)
	}
	r.mu.RUnlock()

	tests := make([]*domain.ABTest, 0, len(managed))
	for _, m := range managed {
		m.mu.Lock()
		tests = append(tests, m.test.Clone())
		m.mu.Unlock()
	}
	sort.Slice(tests, func(i, j int) bool {
		if !tests[i].CreatedAt.Equal(tests[j].CreatedAt) {
			return tests[i].CreatedAt.After(tests[j].CreatedAt)
		}
		return tests[i].Name < tests[j].Name
	})
	return tests, nil
}

// Active returns snapshots of the currently active tests, for the allocator.
func (r *Registry) Active(ctx context.Context) ([]*domain.ABTest, error) {
	tests, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	active := tests[:0]
	for _, t := range tests {
		if t.IsActive() {
			active = append(active, t)
		}
	}
	return active, nil
}

// Mutate runs fn on the live test under its lock and persists the result.
// fn returning an error aborts the mutation without a save. This is the
// aggregator's fold path.
func (r *Registry) Mutate(ctx context.Context, id string, fn func(*domain.ABTest) error) error {
	m, err := r.managed(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fn(m.test); err != nil {
		return err
	}
	if err := r.repo.Update(ctx, m.test); err != nil {
		return fmt.Errorf("failed to persist test %s: %w", id, err)
	}
	return nil
}

func (r *Registry) managed(id string) (*managedTest, error) {
	r.mu.RLock()
	m, ok := r.tests[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: id %q", domain.ErrNotFound, id)
	}
	return m, nil
}

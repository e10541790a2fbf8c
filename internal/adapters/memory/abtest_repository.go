// Package memory provides in-memory adapter implementations, used in tests
// and in dev setups that run without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// ABTestRepository stores durable test records in a map. Records are cloned
// on the way in and out so callers never share mutable state with the store.
type ABTestRepository struct {
	mu    sync.RWMutex
	tests map[string]*domain.ABTest
}

func NewABTestRepository() *ABTestRepository {
	return &ABTestRepository{tests: make(map[string]*domain.ABTest)}
}

func (r *ABTestRepository) Create(ctx context.Context, test *domain.ABTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tests[test.ID]; ok {
		return fmt.Errorf("test %s already exists", test.ID)
	}
	r.tests[test.ID] = test.Clone()
	return nil
}

func (r *ABTestRepository) GetByID(ctx context.Context, id string) (*domain.ABTest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tests[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", domain.ErrNotFound, id)
	}
	return t.Clone(), nil
}

func (r *ABTestRepository) GetByName(ctx context.Context, name string) (*domain.ABTest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tests {
		if t.Name == name {
			return t.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: name %q", domain.ErrNotFound, name)
}

func (r *ABTestRepository) List(ctx context.Context) ([]*domain.ABTest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tests := make([]*domain.ABTest, 0, len(r.tests))
	for _, t := range r.tests {
		tests = append(tests, t.Clone())
	}
	return tests, nil
}

func (r *ABTestRepository) Update(ctx context.Context, test *domain.ABTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tests[test.ID]; !ok {
		return fmt.Errorf("%w: id %q", domain.ErrNotFound, test.ID)
	}
	r.tests[test.ID] = test.Clone()
	return nil
}

func (r *ABTestRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tests[id]; !ok {
		return fmt.Errorf("%w: id %q", domain.ErrNotFound, id)
	}
	delete(r.tests, id)
	return nil
}

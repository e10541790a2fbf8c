// Package allocator decides call-to-variant routing at call start.
package allocator

import (
	"math/rand"
	"sync"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// Allocator draws one independent weighted-random choice per call per
// active test, with P(A) = the test's traffic split. The draw must not
// depend on caller identity; reproducibility comes from seeding the source.
type Allocator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an allocator over the given random source.
func New(src rand.Source) *Allocator {
	return &Allocator{rng: rand.New(src)}
}

// Assign returns one assignment per active test in the given set. Inactive
// tests are skipped; an empty set yields no assignments and the call
// proceeds unaffected.
func (a *Allocator) Assign(tests []*domain.ABTest) []domain.Assignment {
	var assignments []domain.Assignment

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range tests {
		if !t.IsActive() {
			continue
		}
		variant := domain.VariantB
		if a.rng.Float64() < t.TrafficSplit {
			variant = domain.VariantA
		}
		assignments = append(assignments, domain.Assignment{TestID: t.ID, Variant: variant})
	}
	return assignments
}

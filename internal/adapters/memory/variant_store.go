package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// VariantStore resolves prompt variants from a fixed in-memory set.
type VariantStore struct {
	mu       sync.RWMutex
	variants map[string]domain.PromptVariant
}

func NewVariantStore(variants ...domain.PromptVariant) *VariantStore {
	s := &VariantStore{variants: make(map[string]domain.PromptVariant, len(variants))}
	for _, v := range variants {
		s.variants[v.ID] = v
	}
	return s
}

// Add registers a variant, replacing any previous one with the same id.
func (s *VariantStore) Add(v domain.PromptVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[v.ID] = v
}

func (s *VariantStore) ResolveVariant(ctx context.Context, id string) (*domain.PromptVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.variants[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", domain.ErrVariantNotFound, id)
	}
	return &v, nil
}

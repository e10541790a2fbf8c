package ports

import (
	"context"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// ABTestRepository persists one durable record per test: configuration,
// status, and both variant aggregates. A single record is the full crash
// recovery unit.
type ABTestRepository interface {
	Create(ctx context.Context, test *domain.ABTest) error
	GetByID(ctx context.Context, id string) (*domain.ABTest, error)
	GetByName(ctx context.Context, name string) (*domain.ABTest, error)
	List(ctx context.Context) ([]*domain.ABTest, error)
	Update(ctx context.Context, test *domain.ABTest) error
	Delete(ctx context.Context, id string) error
}

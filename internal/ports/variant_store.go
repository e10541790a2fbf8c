package ports

import (
	"context"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// VariantStore resolves prompt-version references. The records themselves
// are owned by the prompt CRUD system; the engine only reads id and name.
type VariantStore interface {
	ResolveVariant(ctx context.Context, id string) (*domain.PromptVariant, error)
}

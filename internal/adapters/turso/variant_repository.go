package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

// VariantRepository reads prompt-version references from the
// prompt_versions table. The engine treats these records as immutable; the
// only writes here exist so an installation can be seeded from the CLI.
type VariantRepository struct {
	db *sql.DB
}

func NewVariantRepository(db *sql.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// ResolveVariant implements ports.VariantStore.
func (r *VariantRepository) ResolveVariant(ctx context.Context, id string) (*domain.PromptVariant, error) {
	var v domain.PromptVariant
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM prompt_versions WHERE id = ?`, id,
	).Scan(&v.ID, &v.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %q", domain.ErrVariantNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve variant: %w", err)
	}
	return &v, nil
}

// Add registers a prompt version reference.
func (r *VariantRepository) Add(ctx context.Context, v *domain.PromptVariant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prompt_versions (id, name, created_at) VALUES (?, ?, ?)`,
		v.ID, v.Name, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to add variant: %w", err)
	}
	return nil
}

// List returns all known prompt version references, name ascending.
func (r *VariantRepository) List(ctx context.Context) ([]*domain.PromptVariant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM prompt_versions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var variants []*domain.PromptVariant
	for rows.Next() {
		var v domain.PromptVariant
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, &v)
	}
	return variants, rows.Err()
}

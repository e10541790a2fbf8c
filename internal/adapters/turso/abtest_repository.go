// Package turso persists engine state in a Turso/libSQL database.
package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emiliopalmerini/promptlab/internal/domain"
	"github.com/emiliopalmerini/promptlab/internal/infrastructure/database"
	"github.com/emiliopalmerini/promptlab/internal/util"
)

// ABTestRepository stores one row per test. The two variant aggregates and
// the cached significance result are JSON blobs inside the row, so a single
// row is the full crash recovery unit.
type ABTestRepository struct {
	db *sql.DB
}

func NewABTestRepository(db *sql.DB) *ABTestRepository {
	return &ABTestRepository{db: db}
}

const abTestColumns = `id, name, variant_a_id, variant_a_name, variant_b_id, variant_b_name,
	traffic_split, status, created_at, stopped_at, aggregate_a, aggregate_b, significance`

func (r *ABTestRepository) Create(ctx context.Context, test *domain.ABTest) error {
	row, err := rowFromTest(test)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ab_tests (`+abTestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.id, row.name, row.variantAID, row.variantAName, row.variantBID, row.variantBName,
		row.trafficSplit, row.status, row.createdAt, row.stoppedAt,
		row.aggregateA, row.aggregateB, row.significance,
	)
	if err != nil {
		return fmt.Errorf("failed to insert test: %w", err)
	}
	return nil
}

func (r *ABTestRepository) GetByID(ctx context.Context, id string) (*domain.ABTest, error) {
	return database.WithRetry(ctx, 3, func() (*domain.ABTest, error) {
		row := r.db.QueryRowContext(ctx,
			`SELECT `+abTestColumns+` FROM ab_tests WHERE id = ?`, id)
		test, err := scanTest(row)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id %q", domain.ErrNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get test: %w", err)
		}
		return test, nil
	})
}

func (r *ABTestRepository) GetByName(ctx context.Context, name string) (*domain.ABTest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+abTestColumns+` FROM ab_tests WHERE name = ?`, name)
	test, err := scanTest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: name %q", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test by name: %w", err)
	}
	return test, nil
}

func (r *ABTestRepository) List(ctx context.Context) ([]*domain.ABTest, error) {
	return database.WithRetry(ctx, 3, func() ([]*domain.ABTest, error) {
		rows, err := r.db.QueryContext(ctx,
			`SELECT `+abTestColumns+` FROM ab_tests ORDER BY created_at DESC`)
		if err != nil {
			return nil, fmt.Errorf("failed to list tests: %w", err)
		}
		defer rows.Close()

		var tests []*domain.ABTest
		for rows.Next() {
			test, err := scanTest(rows)
			if err != nil {
				return nil, fmt.Errorf("failed to scan test: %w", err)
			}
			tests = append(tests, test)
		}
		return tests, rows.Err()
	})
}

func (r *ABTestRepository) Update(ctx context.Context, test *domain.ABTest) error {
	row, err := rowFromTest(test)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE ab_tests
		SET name = ?, traffic_split = ?, status = ?, stopped_at = ?,
			aggregate_a = ?, aggregate_b = ?, significance = ?
		WHERE id = ?`,
		row.name, row.trafficSplit, row.status, row.stoppedAt,
		row.aggregateA, row.aggregateB, row.significance, row.id,
	)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %q", domain.ErrNotFound, test.ID)
	}
	return nil
}

func (r *ABTestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ab_tests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: id %q", domain.ErrNotFound, id)
	}
	return nil
}

// abTestRow mirrors the ab_tests table layout.
type abTestRow struct {
	id           string
	name         string
	variantAID   string
	variantAName string
	variantBID   string
	variantBName string
	trafficSplit float64
	status       string
	createdAt    string
	stoppedAt    sql.NullString
	aggregateA   string
	aggregateB   string
	significance sql.NullString
}

func rowFromTest(test *domain.ABTest) (*abTestRow, error) {
	aggregateA, err := json.Marshal(test.AggregateA)
	if err != nil {
		return nil, fmt.Errorf("failed to encode aggregate A: %w", err)
	}
	aggregateB, err := json.Marshal(test.AggregateB)
	if err != nil {
		return nil, fmt.Errorf("failed to encode aggregate B: %w", err)
	}

	row := &abTestRow{
		id:           test.ID,
		name:         test.Name,
		variantAID:   test.VariantA.ID,
		variantAName: test.VariantA.Name,
		variantBID:   test.VariantB.ID,
		variantBName: test.VariantB.Name,
		trafficSplit: test.TrafficSplit,
		status:       string(test.Status),
		createdAt:    test.CreatedAt.Format(time.RFC3339),
		aggregateA:   string(aggregateA),
		aggregateB:   string(aggregateB),
	}
	if test.StoppedAt != nil {
		row.stoppedAt = util.NullString(test.StoppedAt.Format(time.RFC3339))
	}
	if test.Significance != nil {
		sig, err := json.Marshal(test.Significance)
		if err != nil {
			return nil, fmt.Errorf("failed to encode significance: %w", err)
		}
		row.significance = util.NullString(string(sig))
	}
	return row, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(s rowScanner) (*domain.ABTest, error) {
	var row abTestRow
	err := s.Scan(
		&row.id, &row.name, &row.variantAID, &row.variantAName,
		&row.variantBID, &row.variantBName, &row.trafficSplit, &row.status,
		&row.createdAt, &row.stoppedAt, &row.aggregateA, &row.aggregateB, &row.significance,
	)
	if err != nil {
		return nil, err
	}

	createdAt, _ := time.Parse(time.RFC3339, row.createdAt)

	test := &domain.ABTest{
		ID:           row.id,
		Name:         row.name,
		VariantA:     domain.PromptVariant{ID: row.variantAID, Name: row.variantAName},
		VariantB:     domain.PromptVariant{ID: row.variantBID, Name: row.variantBName},
		TrafficSplit: row.trafficSplit,
		Status:       domain.TestStatus(row.status),
		CreatedAt:    createdAt,
		AggregateA:   domain.NewVariantAggregate(),
		AggregateB:   domain.NewVariantAggregate(),
	}
	if row.stoppedAt.Valid {
		t, _ := time.Parse(time.RFC3339, row.stoppedAt.String)
		test.StoppedAt = &t
	}
	if err := json.Unmarshal([]byte(row.aggregateA), test.AggregateA); err != nil {
		return nil, fmt.Errorf("failed to decode aggregate A: %w", err)
	}
	if err := json.Unmarshal([]byte(row.aggregateB), test.AggregateB); err != nil {
		return nil, fmt.Errorf("failed to decode aggregate B: %w", err)
	}
	if s := util.NullStringToPtr(row.significance); s != nil {
		test.Significance = &domain.SignificanceResult{}
		if err := json.Unmarshal([]byte(*s), test.Significance); err != nil {
			return nil, fmt.Errorf("failed to decode significance: %w", err)
		}
	}
	return test, nil
}

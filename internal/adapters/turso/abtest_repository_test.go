package turso_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/promptlab/internal/adapters/turso"
	"github.com/emiliopalmerini/promptlab/internal/domain"
)

func sampleTest(name string) *domain.ABTest {
	return &domain.ABTest{
		ID:           uuid.NewString(),
		Name:         name,
		VariantA:     domain.PromptVariant{ID: uuid.NewString(), Name: "baseline"},
		VariantB:     domain.PromptVariant{ID: uuid.NewString(), Name: "friendly"},
		TrafficSplit: 0.5,
		Status:       domain.TestStatusActive,
		CreatedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		AggregateA:   domain.NewVariantAggregate(),
		AggregateB:   domain.NewVariantAggregate(),
	}
}

func TestABTestRepository_RoundTrip(t *testing.T) {
	repo := turso.NewABTestRepository(testDB(t))
	ctx := context.Background()

	test := sampleTest("roundtrip")
	q := 0.8
	test.AggregateA.Apply(&domain.CallOutcome{
		TestID: test.ID, Variant: domain.VariantA, Scenario: "booking",
		IdempotencyKey: "call-1", QualityScore: &q,
		Criteria:        map[string]float64{"accuracy": 0.9},
		DurationSeconds: 120, Transferred: true, OccurredOn: "2024-05-01",
	})

	if err := repo.Create(ctx, test); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, test.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != test.Name || got.TrafficSplit != 0.5 || got.Status != domain.TestStatusActive {
		t.Errorf("got %+v", got)
	}
	if got.VariantA.Name != "baseline" || got.VariantB.Name != "friendly" {
		t.Errorf("variants = %+v / %+v", got.VariantA, got.VariantB)
	}
	if !got.CreatedAt.Equal(test.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, test.CreatedAt)
	}

	agg := got.AggregateA
	if agg.CallCount != 1 || agg.TransferCount != 1 || agg.DurationSum != 120 {
		t.Errorf("aggregate A = %+v", agg)
	}
	if agg.PerCriterion["accuracy"].Count != 1 {
		t.Errorf("criteria lost: %+v", agg.PerCriterion)
	}
	if agg.PerScenario["booking"].CallCount != 1 {
		t.Errorf("scenarios lost: %+v", agg.PerScenario)
	}
	if agg.Daily["2024-05-01"].CallCount != 1 {
		t.Errorf("daily lost: %+v", agg.Daily)
	}
	if !agg.Seen("call-1") {
		t.Error("idempotency keys lost on round trip")
	}
	if got.AggregateB.CallCount != 0 {
		t.Errorf("aggregate B = %+v, want zeroed", got.AggregateB)
	}
}

func TestABTestRepository_UpdateStoresStop(t *testing.T) {
	repo := turso.NewABTestRepository(testDB(t))
	ctx := context.Background()

	test := sampleTest("update-stop")
	if err := repo.Create(ctx, test); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stoppedAt := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	test.Status = domain.TestStatusStopped
	test.StoppedAt = &stoppedAt
	test.Significance = &domain.SignificanceResult{MinSamplesNeeded: true}
	if err := repo.Update(ctx, test); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, test.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != domain.TestStatusStopped {
		t.Errorf("status = %s, want stopped", got.Status)
	}
	if got.StoppedAt == nil || !got.StoppedAt.Equal(stoppedAt) {
		t.Errorf("StoppedAt = %v, want %v", got.StoppedAt, stoppedAt)
	}
	if got.Significance == nil || !got.Significance.MinSamplesNeeded {
		t.Errorf("significance = %+v", got.Significance)
	}
}

func TestABTestRepository_NotFound(t *testing.T) {
	repo := turso.NewABTestRepository(testDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByName(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByName() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	missing := sampleTest("never-created")
	if err := repo.Update(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestABTestRepository_ListAndDelete(t *testing.T) {
	repo := turso.NewABTestRepository(testDB(t))
	ctx := context.Background()

	older := sampleTest("list-older")
	newer := sampleTest("list-newer")
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, tt := range tests {
		if tt.Name == "list-older" || tt.Name == "list-newer" {
			names = append(names, tt.Name)
		}
	}
	if len(names) != 2 || names[0] != "list-newer" || names[1] != "list-older" {
		t.Errorf("List() order = %v, want newest first", names)
	}

	if err := repo.Delete(ctx, older.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, older.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestVariantRepository(t *testing.T) {
	repo := turso.NewVariantRepository(testDB(t))
	ctx := context.Background()

	v := &domain.PromptVariant{ID: uuid.NewString(), Name: "concise-v2"}
	if err := repo.Add(ctx, v); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := repo.ResolveVariant(ctx, v.ID)
	if err != nil {
		t.Fatalf("ResolveVariant() error = %v", err)
	}
	if got.Name != "concise-v2" {
		t.Errorf("Name = %q, want concise-v2", got.Name)
	}

	if _, err := repo.ResolveVariant(ctx, "missing"); !errors.Is(err, domain.ErrVariantNotFound) {
		t.Errorf("ResolveVariant(missing) error = %v, want ErrVariantNotFound", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var found bool
	for _, pv := range all {
		if pv.ID == v.ID {
			found = true
		}
	}
	if !found {
		t.Error("List() missing added variant")
	}
}

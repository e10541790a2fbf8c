package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emiliopalmerini/promptlab/internal/adapters/memory"
	"github.com/emiliopalmerini/promptlab/internal/domain"
)

func testRegistry(t *testing.T) (*Registry, *memory.ABTestRepository) {
	t.Helper()
	repo := memory.NewABTestRepository()
	store := memory.NewVariantStore(
		domain.PromptVariant{ID: "v1", Name: "baseline"},
		domain.PromptVariant{ID: "v2", Name: "friendly"},
	)
	return New(repo, store, domain.SignificanceConfig{}), repo
}

func TestRegistry_Create(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	test, err := reg.Create(ctx, "greeting-style", "v1", "v2", 0.5)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if test.ID == "" {
		t.Error("test id not assigned")
	}
	if test.Status != domain.TestStatusActive {
		t.Errorf("status = %s, want active", test.Status)
	}
	if test.VariantA.Name != "baseline" || test.VariantB.Name != "friendly" {
		t.Errorf("variants not resolved: %+v / %+v", test.VariantA, test.VariantB)
	}
	if test.AggregateA == nil || test.AggregateA.CallCount != 0 {
		t.Error("aggregate A not zeroed")
	}
	if test.AggregateB == nil || test.AggregateB.CallCount != 0 {
		t.Error("aggregate B not zeroed")
	}
}

func TestRegistry_Create_Validation(t *testing.T) {
	tests := []struct {
		name     string
		testName string
		aID, bID string
		split    float64
	}{
		{"same variant on both arms", "x", "v1", "v1", 0.5},
		{"split zero", "x", "v1", "v2", 0},
		{"split one", "x", "v1", "v2", 1},
		{"split negative", "x", "v1", "v2", -0.2},
		{"split above one", "x", "v1", "v2", 1.5},
		{"empty name", "  ", "v1", "v2", 0.5},
		{"unknown variant a", "x", "ghost", "v2", 0.5},
		{"unknown variant b", "x", "v1", "ghost", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := testRegistry(t)
			_, err := reg.Create(context.Background(), tt.testName, tt.aID, tt.bID, tt.split)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Create() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRegistry_Create_DuplicateName(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Create(ctx, "greeting", "v1", "v2", 0.5); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	if _, err := reg.Create(ctx, "greeting", "v1", "v2", 0.5); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("duplicate Create() error = %v, want ErrInvalidConfig", err)
	}

	// Deleting frees the name for reuse.
	existing, err := reg.GetByName(ctx, "greeting")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if err := reg.Delete(ctx, existing.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := reg.Create(ctx, "greeting", "v1", "v2", 0.5); err != nil {
		t.Errorf("Create() after delete error = %v", err)
	}
}

func TestRegistry_Stop(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	stoppedAt := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time { return stoppedAt })

	test, err := reg.Create(ctx, "greeting", "v1", "v2", 0.5)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sig, err := reg.Stop(ctx, test.ID)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !sig.MinSamplesNeeded {
		t.Error("empty test stopped without the min-samples flag")
	}

	got, err := reg.Get(ctx, test.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.TestStatusStopped {
		t.Errorf("status = %s, want stopped", got.Status)
	}
	if got.StoppedAt == nil || !got.StoppedAt.Equal(stoppedAt) {
		t.Errorf("StoppedAt = %v, want %v", got.StoppedAt, stoppedAt)
	}
	if got.Significance == nil {
		t.Error("significance not stored on stop")
	}

	// A second stop fails distinctly from not-found.
	if _, err := reg.Stop(ctx, test.ID); !errors.Is(err, domain.ErrAlreadyStopped) {
		t.Errorf("second Stop() error = %v, want ErrAlreadyStopped", err)
	}
	if _, err := reg.Stop(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Stop(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	test, err := reg.Create(ctx, "greeting", "v1", "v2", 0.5)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := reg.Delete(ctx, test.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := reg.Get(ctx, test.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := reg.Delete(ctx, test.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ListAndActive(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	reg.SetClock(func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	})

	first, _ := reg.Create(ctx, "first", "v1", "v2", 0.5)
	second, _ := reg.Create(ctx, "second", "v1", "v2", 0.4)
	if _, err := reg.Stop(ctx, first.ID); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	all, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List() returned %d tests, want 2", len(all))
	}
	if all[0].Name != "second" || all[1].Name != "first" {
		t.Errorf("List() order = %s, %s; want newest first", all[0].Name, all[1].Name)
	}

	active, err := reg.Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != second.ID {
		t.Errorf("Active() = %v, want only %q", active, second.ID)
	}
}

func TestRegistry_LoadAll(t *testing.T) {
	reg, repo := testRegistry(t)
	ctx := context.Background()

	test, err := reg.Create(ctx, "greeting", "v1", "v2", 0.5)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A fresh registry over the same repository recovers the record.
	recovered := New(repo, memory.NewVariantStore(), domain.SignificanceConfig{})
	if err := recovered.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	got, err := recovered.Get(ctx, test.ID)
	if err != nil {
		t.Fatalf("Get() after LoadAll error = %v", err)
	}
	if got.Name != "greeting" || got.Status != domain.TestStatusActive {
		t.Errorf("recovered test = %+v", got)
	}
}

func TestRegistry_MutateSnapshotIsolation(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	test, _ := reg.Create(ctx, "greeting", "v1", "v2", 0.5)
	snap, _ := reg.Get(ctx, test.ID)

	err := reg.Mutate(ctx, test.ID, func(t *domain.ABTest) error {
		t.AggregateA.CallCount = 99
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	if snap.AggregateA.CallCount != 0 {
		t.Error("snapshot shares state with the live test")
	}
	got, _ := reg.Get(ctx, test.ID)
	if got.AggregateA.CallCount != 99 {
		t.Errorf("mutation lost: CallCount = %d", got.AggregateA.CallCount)
	}
}

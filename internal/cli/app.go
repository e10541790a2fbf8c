package cli

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/emiliopalmerini/promptlab/internal/adapters/otel"
	"github.com/emiliopalmerini/promptlab/internal/adapters/turso"
	"github.com/emiliopalmerini/promptlab/internal/aggregator"
	"github.com/emiliopalmerini/promptlab/internal/allocator"
	"github.com/emiliopalmerini/promptlab/internal/domain"
	"github.com/emiliopalmerini/promptlab/internal/infrastructure/config"
	"github.com/emiliopalmerini/promptlab/internal/infrastructure/database"
	"github.com/emiliopalmerini/promptlab/internal/ports"
	"github.com/emiliopalmerini/promptlab/internal/registry"
	"github.com/emiliopalmerini/promptlab/internal/report"
)

// AppContext holds all shared dependencies for CLI commands.
type AppContext struct {
	Config     *config.Engine
	DB         *database.Client
	Variants   *turso.VariantRepository
	Registry   *registry.Registry
	Allocator  *allocator.Allocator
	Aggregator *aggregator.Aggregator
	Reports    *report.Builder
	Metrics    ports.MetricsExporter
}

// NewAppContext creates an AppContext with all dependencies initialized and
// the registry hydrated from the database.
func NewAppContext(ctx context.Context) (*AppContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.New(cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sigCfg := domain.SignificanceConfig{
		MinSamples: cfg.MinSamples,
		Alpha:      cfg.Alpha,
	}

	variants := turso.NewVariantRepository(db.DB)
	reg := registry.New(turso.NewABTestRepository(db.DB), variants, sigCfg)
	if err := reg.LoadAll(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}

	var metrics ports.MetricsExporter
	otelCfg := otel.LoadConfig()
	if otelCfg.Enabled {
		exporter, err := otel.NewExporter(ctx, otelCfg)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize metrics exporter: %w", err)
		}
		metrics = exporter
	} else {
		metrics = otel.NewNoOpExporter()
	}

	// Seed 0 means "not reproducible"; use wall clock entropy.
	seed := cfg.AllocatorSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &AppContext{
		Config:     cfg,
		DB:         db,
		Variants:   variants,
		Registry:   reg,
		Allocator:  allocator.New(rand.NewSource(seed)),
		Aggregator: aggregator.New(reg, metrics),
		Reports:    report.New(reg, sigCfg),
		Metrics:    metrics,
	}, nil
}

// Close releases all resources held by the AppContext.
func (a *AppContext) Close(ctx context.Context) error {
	if a.Metrics != nil {
		_ = a.Metrics.Close(ctx)
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

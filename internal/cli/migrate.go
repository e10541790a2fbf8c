package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/promptlab/internal/infrastructure/config"
	"github.com/emiliopalmerini/promptlab/internal/infrastructure/database"
	"github.com/emiliopalmerini/promptlab/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations.

Examples:
  promptlab migrate         # Run all pending migrations
  promptlab migrate down    # Roll back the most recent migration
  promptlab migrate status  # Show the current schema version`,
	RunE: runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE:  runMigrateDown,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current schema version",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func openMigrationDB() (*database.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.New(cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openMigrationDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate.RunAll(ctx, db.DB); err != nil {
		return err
	}

	version, _, err := migrate.CurrentVersion(ctx, db.DB)
	if err != nil {
		return err
	}
	fmt.Printf("Schema at version %d\n", version)
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openMigrationDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate.MigrateDown(ctx, db.DB); err != nil {
		return err
	}

	version, _, err := migrate.CurrentVersion(ctx, db.DB)
	if err != nil {
		return err
	}
	fmt.Printf("Schema at version %d\n", version)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openMigrationDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate.EnsureMigrationsTable(ctx, db.DB); err != nil {
		return err
	}
	version, dirty, err := migrate.CurrentVersion(ctx, db.DB)
	if err != nil {
		return err
	}

	state := "clean"
	if dirty {
		state = "DIRTY, manual intervention required"
	}
	fmt.Printf("Schema version: %d (%s)\n", version, state)
	return nil
}

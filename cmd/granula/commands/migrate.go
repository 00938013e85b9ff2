package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/pkg/config"
	"github.com/marmos91/granula/pkg/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the configured database.

PostgreSQL migrations are applied from the embedded, versioned SQL files.
SQLite schemas are managed automatically when the store opens, so for a
SQLite database this command opens the store once and verifies it.

Examples:
  # Run migrations with default config
  granula migrate

  # Run migrations with custom config
  granula migrate --config /etc/granula/config.yaml

  # Run migrations against an explicit database
  DATABASE_URL=postgres://granula@localhost/granula granula migrate`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	dbCfg, err := store.ParseDatabaseURL(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid database url: %w", err)
	}

	logger.Info("Running database migrations", "type", string(dbCfg.Type))
	ctx := context.Background()

	if dbCfg.Type == store.DatabaseTypePostgres {
		if err := store.RunMigrations(ctx, dbCfg); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		version, dirty, err := store.MigrationVersion(dbCfg)
		if err != nil {
			return fmt.Errorf("migration verification failed: %w", err)
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty, manual intervention required", version)
		}

		fmt.Printf("Migrations completed successfully (schema version: %d)\n", version)
		return nil
	}

	// SQLite schemas are kept current on open, so opening the store and
	// probing it is the whole migration.
	st, err := store.New(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.Healthcheck(ctx); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", dbCfg.Type)
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/pkg/store/migrations"
)

// runMigrations executes database migrations using golang-migrate.
// Uses advisory locks to ensure only one instance runs migrations at a time.
func runMigrations(ctx context.Context, connString string) error {
	logger.Info("running database migrations")

	// golang-migrate drives a database/sql connection, separate from GORM's
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}
	if err == migrate.ErrNoChange {
		logger.Info("no migrations to apply, database is up to date")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if err != migrate.ErrNilVersion {
		logger.Info("schema version", logger.Migration(version))
		if dirty {
			logger.Warn("database schema is in dirty state, manual intervention may be required",
				logger.Migration(version))
		}
	}

	return nil
}

// RunMigrations applies pending migrations against the configured database.
// Exposed for manual execution from the CLI; SQLite schemas are managed by
// AutoMigrate on open, so this only applies to PostgreSQL.
func RunMigrations(ctx context.Context, config *Config) error {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	if config.Type != DatabaseTypePostgres {
		return fmt.Errorf("migrations are managed automatically for %s", config.Type)
	}

	return runMigrations(ctx, config.Postgres.DSN())
}

// MigrationVersion returns the current schema version and dirty flag for a
// PostgreSQL database. Returns 0, false when no migrations have run yet.
func MigrationVersion(config *Config) (uint, bool, error) {
	db, err := sql.Open("pgx", config.Postgres.DSN())
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return 0, false, err
	}
	if err == migrate.ErrNilVersion {
		return 0, false, nil
	}

	return version, dirty, nil
}

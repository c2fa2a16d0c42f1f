// Package database applies the PostgreSQL schema used by the match store.
// SQLite stores create their schema on open and need no migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"github.com/trial-eligibility-engine/internal/domain"
)

// DefaultMigrationsPath is used when the storage config names none.
const DefaultMigrationsPath = "migrations"

// migrator is the subset of *migrate.Migrate the runner drives.
type migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// MigrationRunner handles database migrations
type MigrationRunner struct {
	migrate migrator
	log     *logrus.Logger
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	source, err := sourceURL(migrationsPath)
	if err != nil {
		return nil, err
	}

	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}

	return newRunner(m, logger), nil
}

// NewMigrationRunnerFromConfig builds a runner for the configured PostgreSQL store.
func NewMigrationRunnerFromConfig(cfg domain.StorageConfig, logger *logrus.Logger) (*MigrationRunner, error) {
	if cfg.Driver != "postgres" {
		return nil, domain.NewValidationError("storage.driver", "migrations require the postgres driver", cfg.Driver)
	}
	if cfg.PostgresURL == "" {
		return nil, domain.NewValidationError("storage.postgres_url", "postgres URL is required", "")
	}
	return NewMigrationRunner(cfg.PostgresURL, cfg.MigrationsPath, logger)
}

func newRunner(m migrator, logger *logrus.Logger) *MigrationRunner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MigrationRunner{migrate: m, log: logger}
}

// sourceURL turns a migrations directory into a file:// source URL.
func sourceURL(migrationsPath string) (string, error) {
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}
	abs, err := filepath.Abs(migrationsPath)
	if err != nil {
		return "", fmt.Errorf("resolving migrations path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Up runs all pending migrations
func (mr *MigrationRunner) Up(ctx context.Context) error {
	mr.log.Info("Running database migrations up")

	if err := mr.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("No pending migrations to run")
			return nil
		}
		return fmt.Errorf("running migrations up: %w", err)
	}

	mr.logVersion("Migrations completed successfully")
	return nil
}

// Down rolls back one migration
func (mr *MigrationRunner) Down(ctx context.Context) error {
	mr.log.Info("Rolling back one migration")

	if err := mr.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("rolling back migration: %w", err)
	}

	mr.logVersion("Migration rolled back successfully")
	return nil
}

func (mr *MigrationRunner) logVersion(msg string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not get migration version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info(msg)
}

// Version returns the current migration version
func (mr *MigrationRunner) Version() (uint, bool, error) {
	return mr.migrate.Version()
}

// Close closes the migration runner
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}

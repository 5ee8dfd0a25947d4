package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// RunMigrations executes pending migrations from the specified directory.
// It is idempotent and safe to call multiple times - only pending
// migrations will be executed.
//
// The sqlite3 migration driver closes the *sql.DB handed to it, so
// migrations run on a dedicated connection rather than the store's pool.
func RunMigrations(path string, migrationsPath string, logger *zap.Logger) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite3", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if err == migrate.ErrNoChange {
		logger.Info("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Applied migrations successfully", zap.Uint("version", newVersion))
	return nil
}

// Provisioner binds a store to its migrations directory so callers can
// provision the schema without knowing either.
type Provisioner struct {
	store          *Store
	migrationsPath string
	logger         *zap.Logger
}

// NewProvisioner creates a Provisioner for the given store.
func NewProvisioner(store *Store, migrationsPath string, logger *zap.Logger) *Provisioner {
	return &Provisioner{store: store, migrationsPath: migrationsPath, logger: logger}
}

// Provision creates the schema if it does not exist yet.
func (p *Provisioner) Provision(ctx context.Context) error {
	return RunMigrations(p.store.Path(), p.migrationsPath, p.logger)
}

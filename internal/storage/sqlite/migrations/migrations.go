// Package migrations applies the embedded instance registry schema to a
// SQLite database.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/slok/pgembed/internal/log"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

// Apply brings the registry schema up to date. It is meant to run on every
// registry open, an already current schema is a no-op.
func Apply(ctx context.Context, db *sql.DB, logger log.Logger) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	// The migrate library is not ctx-aware, bail out early at least when the
	// caller already gave up.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("could not apply registry schema: %w", err)
	}

	src, err := iofs.New(schemaFiles, "sql")
	if err != nil {
		return fmt.Errorf("could not load embedded schema files: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Errorf("could not close schema source: %s", err)
		}
	}()

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("could not create migration runner: %w", err)
	}

	from := schemaVersion(m)

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debugf("registry schema already at version %d", from)
	case err != nil:
		return fmt.Errorf("could not apply registry schema: %w", err)
	default:
		logger.Infof("registry schema migrated from version %d to %d", from, schemaVersion(m))
	}

	return nil
}

// schemaVersion returns the current schema version, 0 when the registry has
// never been migrated.
func schemaVersion(m *migrate.Migrate) uint {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return v
}

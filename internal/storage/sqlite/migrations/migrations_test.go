package migrations_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/storage/sqlite/migrations"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)

	require.NoError(t, migrations.Apply(ctx, db, log.Noop))

	// The schema should be usable right away.
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Reapplying on a current schema is a no-op.
	require.NoError(t, migrations.Apply(ctx, db, log.Noop))
}

func TestApplyCanceledContext(t *testing.T) {
	db := newDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := migrations.Apply(ctx, db, log.Noop)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyNilDB(t *testing.T) {
	err := migrations.Apply(context.Background(), nil, log.Noop)
	assert.Error(t, err)
}

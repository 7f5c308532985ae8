package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateSQLite(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, db, DialectSQLite))

	for _, table := range []string{"users", "categories", "tags", "movies", "series", "products", "product_tags", "orders", "order_items"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, db, DialectSQLite))
	require.NoError(t, Migrate(ctx, db, DialectSQLite))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestSortMigrations(t *testing.T) {
	ordered, err := sortMigrations([]Migration{
		{Version: "1.10.0"},
		{Version: "1.2.0"},
		{Version: "1.0.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", ordered[0].Version)
	assert.Equal(t, "1.2.0", ordered[1].Version)
	assert.Equal(t, "1.10.0", ordered[2].Version)

	_, err = sortMigrations([]Migration{{Version: "1.0.0"}, {Version: "1.0"}})
	assert.Error(t, err, "1.0 and 1.0.0 are the same version")

	_, err = sortMigrations([]Migration{{Version: "not-a-version"}})
	assert.Error(t, err)
}

// Package testutil provides an in-memory SQLite database carrying the
// production schema, for repository, service and handler tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/cinecriticas/store/internal/database"
)

// NewDB opens a private in-memory database and applies all migrations.
// The pool is pinned to one connection: every connection to :memory:
// would otherwise see its own empty database.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db, database.DialectSQLite))
	return db
}

// Exec runs a fixture statement and fails the test on error.
func Exec(t testing.TB, db *sql.DB, query string, args ...any) sql.Result {
	t.Helper()
	res, err := db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
	return res
}

// InsertID runs an INSERT fixture and returns the generated id.
func InsertID(t testing.TB, db *sql.DB, query string, args ...any) uint64 {
	t.Helper()
	id, err := Exec(t, db, query, args...).LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Dialect selects which DDL variant of a migration is applied.  MySQL is
// the production store; SQLite backs the test suite.
type Dialect int

const (
	DialectMySQL Dialect = iota
	DialectSQLite
)

// Migration is one schema step.  Versions are semantic versions and are
// applied in ascending order.
type Migration struct {
	Version string
	MySQL   []string
	SQLite  []string
}

func (m Migration) statements(d Dialect) []string {
	if d == DialectSQLite {
		return m.SQLite
	}
	return m.MySQL
}

// Migrate applies every migration in AllMigrations that has not been
// recorded in schema_migrations yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	return apply(ctx, db, d, AllMigrations)
}

func apply(ctx context.Context, db *sql.DB, d Dialect, migrations []Migration) error {
	const createTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(32) NOT NULL PRIMARY KEY,
		applied_at DATETIME NOT NULL
	)`
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	ordered, err := sortMigrations(migrations)
	if err != nil {
		return err
	}

	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range m.statements(d) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %s: %w", m.Version, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.Version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.Version, err)
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

// sortMigrations validates every version and returns the migrations in
// ascending semantic-version order.  Duplicate versions are rejected.
func sortMigrations(migrations []Migration) ([]Migration, error) {
	type entry struct {
		v *semver.Version
		m Migration
	}
	entries := make([]entry, 0, len(migrations))
	seen := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version %q: %w", m.Version, err)
		}
		if seen[v.String()] {
			return nil, fmt.Errorf("duplicate migration version %q", m.Version)
		}
		seen[v.String()] = true
		entries = append(entries, entry{v: v, m: m})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].v.LessThan(entries[j].v) })
	out := make([]Migration, len(entries))
	for i, e := range entries {
		out[i] = e.m
	}
	return out, nil
}

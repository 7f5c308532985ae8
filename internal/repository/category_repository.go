package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// CategoryRepo manages the categories and tags used to classify products.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo returns a CategoryRepo bound to db.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// CategoryRow is the public shape of a category with its product count.
type CategoryRow struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Products int64  `json:"products"`
}

// ListCategories returns all categories ordered by name.
func (r *CategoryRepo) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	const q = `SELECT c.id, c.name, COUNT(p.id)
	           FROM categories c
	           LEFT JOIN products p ON p.category_id = c.id
	           GROUP BY c.id, c.name
	           ORDER BY c.name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]CategoryRow, 0)
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.Name, &c.Products); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// EnsureCategory returns the id of the category called name, creating it
// when missing.
func (r *CategoryRepo) EnsureCategory(ctx context.Context, name string) (uint64, error) {
	return r.ensure(ctx, "categories", name)
}

// EnsureTag returns the id of the tag called name, creating it when
// missing.
func (r *CategoryRepo) EnsureTag(ctx context.Context, name string) (uint64, error) {
	return r.ensure(ctx, "tags", name)
}

func (r *CategoryRepo) ensure(ctx context.Context, table, name string) (uint64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("name required")
	}
	var id uint64
	err := r.db.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, "INSERT INTO "+table+" (name) VALUES (?)", name)
	if err != nil {
		if isDuplicateKey(err) {
			// lost a race with a concurrent insert; read the winner
			err = r.db.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name = ?", name).Scan(&id)
			return id, err
		}
		return 0, err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

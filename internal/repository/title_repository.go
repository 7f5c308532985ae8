package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cinecriticas/store/internal/model"
)

// TitleRepo reads the movies and series that products may point at.
// Movie and series CRUD lives elsewhere; this repository only resolves
// references.
type TitleRepo struct {
	db *sql.DB
}

// NewTitleRepo returns a TitleRepo bound to db.
func NewTitleRepo(db *sql.DB) *TitleRepo { return &TitleRepo{db: db} }

// Resolve loads the title referenced by target.  It returns (nil, nil)
// for the empty target and for dangling references, since a product
// whose movie was removed is still sellable.
func (r *TitleRepo) Resolve(ctx context.Context, target model.ProductTarget) (*model.Title, error) {
	var table string
	switch target.Kind {
	case model.TargetMovie:
		table = "movies"
	case model.TargetSeries:
		table = "series"
	default:
		return nil, nil
	}
	if target.ID == 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`SELECT id, title, release_year, poster_url FROM %s WHERE id = ?`, table)
	var (
		t    = model.Title{Kind: target.Kind}
		year sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, target.ID).Scan(&t.ID, &t.Title, &year, &t.PosterURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s %d: %w", target.Kind, target.ID, err)
	}
	if year.Valid {
		y := int(year.Int64)
		t.ReleaseYear = &y
	}
	return &t, nil
}

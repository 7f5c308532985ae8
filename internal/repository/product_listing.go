package repository

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cinecriticas/store/internal/model"
)

// ProductPage is one page of a catalog listing.  Count is the number of
// rows matching the filters, ignoring pagination.
type ProductPage struct {
	Count int64            `json:"count"`
	Rows  []*model.Product `json:"rows"`
}

// resolveConcurrency bounds the movie/series lookups issued per page.
const resolveConcurrency = 4

// FindWithQuery runs a built listing descriptor.  A failing query is
// logged and reported as an empty page so the catalog degrades instead
// of erroring.
func (r *ProductRepo) FindWithQuery(ctx context.Context, q ProductQuery) ProductPage {
	page, err := r.findWithQuery(ctx, q)
	if err != nil {
		r.log.Error("product listing query failed",
			zap.Int("limit", q.Limit),
			zap.Int("offset", q.Offset),
			zap.Int("filters", len(q.Where)+len(q.Include)),
			zap.Error(err))
		return ProductPage{Count: 0, Rows: []*model.Product{}}
	}
	return page
}

func (r *ProductRepo) findWithQuery(ctx context.Context, q ProductQuery) (ProductPage, error) {
	where, args := q.conditions()

	var count int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products p WHERE "+where, args...,
	).Scan(&count); err != nil {
		return ProductPage{}, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	pageArgs := append(append([]any{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+productFrom+" WHERE "+where+
			" ORDER BY "+q.orderBy()+" LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return ProductPage{}, err
	}
	products := make([]*model.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return ProductPage{}, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return ProductPage{}, err
	}
	rows.Close()

	if err := r.attachTags(ctx, products); err != nil {
		return ProductPage{}, err
	}
	if err := r.resolveTargets(ctx, products); err != nil {
		return ProductPage{}, err
	}
	return ProductPage{Count: count, Rows: products}, nil
}

// resolveTargets loads the movie or series behind each product.  Equal
// targets on the same page are fetched once.
func (r *ProductRepo) resolveTargets(ctx context.Context, products []*model.Product) error {
	if r.titles == nil {
		return nil
	}
	var (
		mu       sync.Mutex
		resolved = make(map[model.ProductTarget]*model.Title)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for _, p := range products {
		if p.Target.IsNone() {
			continue
		}
		target := p.Target
		mu.Lock()
		_, started := resolved[target]
		if !started {
			resolved[target] = nil
		}
		mu.Unlock()
		if started {
			continue
		}
		g.Go(func() error {
			t, err := r.titles.Resolve(gctx, target)
			if err != nil {
				return err
			}
			mu.Lock()
			resolved[target] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, p := range products {
		if !p.Target.IsNone() {
			p.Productable = resolved[p.Target]
		}
	}
	return nil
}

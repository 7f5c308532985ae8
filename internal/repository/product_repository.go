package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cinecriticas/store/internal/model"
	"github.com/cinecriticas/store/internal/utils"
)

// ProductRepo is the data access boundary over products.  Stock is only
// changed through DecrementStockTx inside the order transaction or by a
// full Update from catalog management.
type ProductRepo struct {
	db     *sql.DB
	titles *TitleRepo
	log    *zap.Logger
	now    func() time.Time
}

// NewProductRepo returns a ProductRepo.  titles may be nil, in which
// case listings do not resolve movie/series references.
func NewProductRepo(db *sql.DB, titles *TitleRepo, log *zap.Logger) *ProductRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductRepo{db: db, titles: titles, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning several repositories.
func (r *ProductRepo) DB() *sql.DB { return r.db }

// ProductInput is the writable part of a product used by Create and
// Update.  Update replaces every field.
type ProductInput struct {
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description" yaml:"description"`
	Price       decimal.Decimal     `json:"price" yaml:"price"`
	Stock       int                 `json:"stock" yaml:"stock"`
	Brand       string              `json:"brand" yaml:"brand"`
	SKU         *string             `json:"sku" yaml:"sku"`
	Edition     string              `json:"edition" yaml:"edition"`
	ReleaseYear *int                `json:"release_year" yaml:"release_year"`
	Kind        model.ProductKind   `json:"kind" yaml:"kind"`
	Benefits    []string            `json:"benefits" yaml:"benefits"`
	ImageURL    string              `json:"image_url" yaml:"image_url"`
	CategoryID  *uint64             `json:"category_id" yaml:"-"`
	Target      model.ProductTarget `json:"-" yaml:"-"`
	TagIDs      []uint64            `json:"tag_ids" yaml:"-"`
}

// Validate normalizes the input and checks the catalog invariants.
func (in *ProductInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if in.Price.IsNegative() {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidProduct)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock must be >= 0", ErrInvalidProduct)
	}
	if in.Kind == "" {
		in.Kind = model.KindPurchase
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: kind must be purchase or membership", ErrInvalidProduct)
	}
	if in.SKU != nil {
		sku := strings.TrimSpace(*in.SKU)
		if sku == "" {
			in.SKU = nil
		} else {
			in.SKU = &sku
		}
	}
	in.Price = in.Price.Round(2)
	return nil
}

func (in ProductInput) benefitsColumn() (any, error) {
	if len(in.Benefits) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(in.Benefits)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

const productColumns = `p.id, p.name, p.slug, p.description, p.price, p.stock, p.brand, p.sku,
	p.edition, p.release_year, p.kind, p.benefits, p.image_url, p.category_id,
	p.productable_type, p.productable_id, p.created_at, p.updated_at, c.name`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*model.Product, error) {
	var (
		p            model.Product
		sku          sql.NullString
		year         sql.NullInt64
		kind         string
		benefits     sql.NullString
		categoryID   sql.NullInt64
		targetType   sql.NullString
		targetID     sql.NullInt64
		categoryName sql.NullString
	)
	if err := s.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock, &p.Brand, &sku,
		&p.Edition, &year, &kind, &benefits, &p.ImageURL, &categoryID,
		&targetType, &targetID, &p.CreatedAt, &p.UpdatedAt, &categoryName,
	); err != nil {
		return nil, err
	}
	p.Kind = model.ProductKind(kind)
	if sku.Valid {
		v := sku.String
		p.SKU = &v
	}
	if year.Valid {
		y := int(year.Int64)
		p.ReleaseYear = &y
	}
	if benefits.Valid && benefits.String != "" {
		if err := json.Unmarshal([]byte(benefits.String), &p.Benefits); err != nil {
			// tolerate legacy comma-separated values
			for _, b := range strings.Split(benefits.String, ",") {
				if b = strings.TrimSpace(b); b != "" {
					p.Benefits = append(p.Benefits, b)
				}
			}
		}
	}
	if categoryID.Valid {
		id := uint64(categoryID.Int64)
		p.CategoryID = &id
		if categoryName.Valid {
			p.Category = &model.Category{ID: id, Name: categoryName.String}
		}
	}
	p.Target = model.ParseTarget(targetType, targetID)
	p.Tags = []model.Tag{}
	return &p, nil
}

// FindByID returns the product with its category and tags.
func (r *ProductRepo) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
	return r.findOne(ctx, "p.id = ?", id)
}

// FindBySlug returns the product with the given slug.
func (r *ProductRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.findOne(ctx, "p.slug = ?", strings.ToLower(strings.TrimSpace(slug)))
}

func (r *ProductRepo) findOne(ctx context.Context, cond string, arg any) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+productFrom+" WHERE "+cond, arg)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachTags(ctx, []*model.Product{p}); err != nil {
		return nil, err
	}
	if r.titles != nil && !p.Target.IsNone() {
		t, err := r.titles.Resolve(ctx, p.Target)
		if err != nil {
			return nil, err
		}
		p.Productable = t
	}
	return p, nil
}

// attachTags loads the tags of every product in a single query.
func (r *ProductRepo) attachTags(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Product, len(products))
	args := make([]any, 0, len(products))
	for _, p := range products {
		index[p.ID] = p
		args = append(args, p.ID)
	}
	q := `SELECT pt.product_id, t.id, t.name
	      FROM product_tags pt
	      JOIN tags t ON t.id = pt.tag_id
	      WHERE pt.product_id IN (` + placeholders(len(args)) + `)
	      ORDER BY pt.product_id, t.name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var pid uint64
		var t model.Tag
		if err := rows.Scan(&pid, &t.ID, &t.Name); err != nil {
			return err
		}
		if p, ok := index[pid]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	return rows.Err()
}

// Create inserts a product, generating a unique slug from its name.  A
// duplicate SKU yields ErrConflict.
func (r *ProductRepo) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var id uint64
	err := r.withSlugRetry(func() error {
		var err error
		id, err = r.insert(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *ProductRepo) insert(ctx context.Context, in ProductInput) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slug, err := uniqueSlug(ctx, tx, in.Name, 0)
	if err != nil {
		return 0, err
	}
	benefits, err := in.benefitsColumn()
	if err != nil {
		return 0, err
	}
	targetType, targetID := in.Target.Columns()
	now := r.now()
	const q = `INSERT INTO products
		(name, slug, description, price, stock, brand, sku, edition, release_year, kind, benefits,
		 image_url, category_id, productable_type, productable_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		in.Name, slug, in.Description, in.Price.StringFixed(2), in.Stock, in.Brand, in.SKU,
		in.Edition, in.ReleaseYear, string(in.Kind), benefits, in.ImageURL, in.CategoryID,
		targetType, targetID, now, now)
	if err != nil {
		return 0, err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	id := uint64(n)
	if err := replaceTags(ctx, tx, id, in.TagIDs); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return id, nil
}

// Update replaces the writable fields of product id.  The slug is
// regenerated when the name changes.  ErrProductNotFound is returned
// when id does not exist.
func (r *ProductRepo) Update(ctx context.Context, id uint64, in ProductInput) (*model.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	err := r.withSlugRetry(func() error { return r.update(ctx, id, in) })
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *ProductRepo) update(ctx context.Context, id uint64, in ProductInput) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var currentName, slug string
	err = tx.QueryRowContext(ctx, `SELECT name, slug FROM products WHERE id = ?`, id).Scan(&currentName, &slug)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if currentName != in.Name {
		if slug, err = uniqueSlug(ctx, tx, in.Name, id); err != nil {
			return err
		}
	}
	benefits, err := in.benefitsColumn()
	if err != nil {
		return err
	}
	targetType, targetID := in.Target.Columns()
	const q = `UPDATE products SET
		name = ?, slug = ?, description = ?, price = ?, stock = ?, brand = ?, sku = ?, edition = ?,
		release_year = ?, kind = ?, benefits = ?, image_url = ?, category_id = ?,
		productable_type = ?, productable_id = ?, updated_at = ?
		WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q,
		in.Name, slug, in.Description, in.Price.StringFixed(2), in.Stock, in.Brand, in.SKU, in.Edition,
		in.ReleaseYear, string(in.Kind), benefits, in.ImageURL, in.CategoryID,
		targetType, targetID, r.now(), id); err != nil {
		return err
	}
	if err := replaceTags(ctx, tx, id, in.TagIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// withSlugRetry retries fn when it lost a slug race with a concurrent
// writer.  Duplicate SKUs are reported as ErrConflict immediately.
func (r *ProductRepo) withSlugRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = fn()
		if err == nil || !isDuplicateKey(err) {
			return err
		}
		if strings.Contains(strings.ToLower(err.Error()), "sku") {
			return fmt.Errorf("%w: sku already exists", ErrConflict)
		}
		r.log.Warn("product slug collision, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

// Delete removes product id.  It returns ErrProductNotFound when the id
// does not exist and ErrConflict when order lines still reference it.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: product is referenced by orders", ErrConflict)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, productID uint64, tagIDs []uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_tags WHERE product_id = ?`, productID); err != nil {
		return err
	}
	var ids []uint64
	seen := make(map[uint64]bool)
	for _, id := range tagIDs {
		if id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	query := `INSERT INTO product_tags (product_id, tag_id) VALUES `
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, productID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// uniqueSlug derives a slug from name and appends the first free numeric
// suffix when the plain slug is taken by another product.
func uniqueSlug(ctx context.Context, q querier, name string, excludeID uint64) (string, error) {
	base := utils.Slugify(name)
	rows, err := q.QueryContext(ctx,
		`SELECT slug FROM products WHERE (slug = ? OR slug LIKE ?) AND id <> ?`,
		base, base+"-%", excludeID)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	taken := make(map[string]bool)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return "", err
		}
		taken[s] = true
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if !taken[base] {
		return base, nil
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// GetForOrderTx loads the fields the order flow needs inside tx.
func (r *ProductRepo) GetForOrderTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Product, error) {
	var (
		p    model.Product
		kind string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, slug, price, stock, kind FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Stock, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Kind = model.ProductKind(kind)
	return &p, nil
}

// DecrementStockTx subtracts qty from the product's stock inside tx.
// The update only applies while enough stock remains, so two concurrent
// orders can never both take the last units; the loser gets
// ErrInsufficientStock.  qty must be positive.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?`,
		qty, r.now(), id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

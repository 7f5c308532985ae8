package repository

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cinecriticas/store/internal/model"
)

// Listing defaults applied by WithPagination and the HTTP layer.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Clause is a single SQL condition over the products table (alias p)
// together with its bind arguments.
type Clause struct {
	SQL  string
	Args []any
}

// SubQuery is a condition that reaches into a related table.  Entity and
// Key identify it: two sub-queries with the same Entity and Key are the
// same filter and only the first one survives Build.
type SubQuery struct {
	Entity string
	Key    string
	Clause
}

// ProductQuery is the finalized listing descriptor consumed by
// ProductRepo.FindWithQuery.
type ProductQuery struct {
	Where   []Clause
	Include []SubQuery
	Limit   int
	Offset  int
	Order   []string
}

// conditions joins every clause with AND.  An empty descriptor matches
// all rows.
func (q ProductQuery) conditions() (string, []any) {
	parts := make([]string, 0, len(q.Where)+len(q.Include))
	args := make([]any, 0)
	for _, c := range q.Where {
		parts = append(parts, "("+c.SQL+")")
		args = append(args, c.Args...)
	}
	for _, s := range q.Include {
		parts = append(parts, "("+s.SQL+")")
		args = append(args, s.Args...)
	}
	if len(parts) == 0 {
		return "1=1", args
	}
	return strings.Join(parts, " AND "), args
}

func (q ProductQuery) orderBy() string {
	if len(q.Order) == 0 {
		return "p.created_at DESC, p.id DESC"
	}
	return strings.Join(q.Order, ", ")
}

// ProductCriteria holds the scalar listing filters.  Nil fields are not
// applied.
type ProductCriteria struct {
	Page              int
	Limit             int
	MinPrice          *decimal.Decimal
	MaxPrice          *decimal.Decimal
	Search            *string
	Brand             *string
	Edition           *string
	ReleaseYear       *int
	Kind              *model.ProductKind
	MembershipBenefit *string
}

// ProductQueryBuilder accumulates listing criteria.  Methods return the
// builder so calls can be chained; Build produces the descriptor.
type ProductQueryBuilder struct {
	criteria   ProductCriteria
	subqueries []SubQuery
}

// NewProductQueryBuilder returns a builder for page 1 with the default
// page size.
func NewProductQueryBuilder() *ProductQueryBuilder {
	return &ProductQueryBuilder{criteria: ProductCriteria{Page: 1, Limit: DefaultPageSize}}
}

// Criteria returns a copy of the scalar criteria collected so far.
func (b *ProductQueryBuilder) Criteria() ProductCriteria { return b.criteria }

// WithPagination clamps page and limit to at least 1.
func (b *ProductQueryBuilder) WithPagination(page, limit int) *ProductQueryBuilder {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	b.criteria.Page = page
	b.criteria.Limit = limit
	return b
}

// FilterByCategory filters by category id when value is numeric and by
// case-insensitive category name otherwise.  Blank values are ignored.
func (b *ProductQueryBuilder) FilterByCategory(value string) *ProductQueryBuilder {
	value = strings.TrimSpace(value)
	if value == "" {
		return b
	}
	if id, err := strconv.ParseUint(value, 10, 64); err == nil {
		key := "id=" + strconv.FormatUint(id, 10)
		b.subqueries = append(b.subqueries, SubQuery{
			Entity: "categories",
			Key:    key,
			Clause: Clause{SQL: "p.category_id = ?", Args: []any{id}},
		})
		return b
	}
	name := strings.ToLower(value)
	b.subqueries = append(b.subqueries, SubQuery{
		Entity: "categories",
		Key:    "name=" + name,
		Clause: Clause{
			SQL:  "p.category_id IN (SELECT c2.id FROM categories c2 WHERE LOWER(c2.name) = ?)",
			Args: []any{name},
		},
	})
	return b
}

// FilterByTags keeps products carrying any of the given tag ids.  Each
// value may itself be a comma-separated list; empty or non-numeric
// entries are dropped and the filter is skipped when nothing is left.
func (b *ProductQueryBuilder) FilterByTags(values ...string) *ProductQueryBuilder {
	ids := ParseIDList(values...)
	if len(ids) == 0 {
		return b
	}
	keys := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = strconv.FormatUint(id, 10)
		args[i] = id
	}
	b.subqueries = append(b.subqueries, SubQuery{
		Entity: "tags",
		Key:    "ids=" + strings.Join(keys, ","),
		Clause: Clause{
			SQL:  "p.id IN (SELECT pt.product_id FROM product_tags pt WHERE pt.tag_id IN (" + placeholders(len(ids)) + "))",
			Args: args,
		},
	})
	return b
}

// FilterByPrice applies an inclusive price range; either bound may be nil.
func (b *ProductQueryBuilder) FilterByPrice(min, max *decimal.Decimal) *ProductQueryBuilder {
	b.criteria.MinPrice = min
	b.criteria.MaxPrice = max
	return b
}

// Search matches term case-insensitively against name or description.
func (b *ProductQueryBuilder) Search(term string) *ProductQueryBuilder {
	if term = strings.TrimSpace(term); term != "" {
		b.criteria.Search = &term
	}
	return b
}

func (b *ProductQueryBuilder) FilterByBrand(brand string) *ProductQueryBuilder {
	if brand = strings.TrimSpace(brand); brand != "" {
		b.criteria.Brand = &brand
	}
	return b
}

func (b *ProductQueryBuilder) FilterByEdition(edition string) *ProductQueryBuilder {
	if edition = strings.TrimSpace(edition); edition != "" {
		b.criteria.Edition = &edition
	}
	return b
}

func (b *ProductQueryBuilder) FilterByReleaseYear(year int) *ProductQueryBuilder {
	if year > 0 {
		b.criteria.ReleaseYear = &year
	}
	return b
}

// FilterByKind narrows to purchase or membership products.  Unknown
// kinds are ignored.
func (b *ProductQueryBuilder) FilterByKind(kind string) *ProductQueryBuilder {
	k := model.ProductKind(strings.ToLower(strings.TrimSpace(kind)))
	if k.Valid() {
		b.criteria.Kind = &k
	}
	return b
}

// FilterByMembershipBenefit keeps membership products whose benefits
// list contains term.
func (b *ProductQueryBuilder) FilterByMembershipBenefit(term string) *ProductQueryBuilder {
	if term = strings.TrimSpace(term); term != "" {
		b.criteria.MembershipBenefit = &term
		k := model.KindMembership
		b.criteria.Kind = &k
	}
	return b
}

// Build finalizes the descriptor.  Related-table sub-queries are
// deduplicated by entity and key; the first one seen is kept and later
// duplicates are dropped.
func (b *ProductQueryBuilder) Build() ProductQuery {
	c := b.criteria
	q := ProductQuery{
		Limit:  c.Limit,
		Offset: (c.Page - 1) * c.Limit,
		Order:  []string{"p.created_at DESC", "p.id DESC"},
	}

	if c.MinPrice != nil {
		q.Where = append(q.Where, Clause{SQL: "p.price >= ?", Args: []any{c.MinPrice.String()}})
	}
	if c.MaxPrice != nil {
		q.Where = append(q.Where, Clause{SQL: "p.price <= ?", Args: []any{c.MaxPrice.String()}})
	}
	if c.Search != nil {
		like := "%" + strings.ToLower(*c.Search) + "%"
		q.Where = append(q.Where, Clause{
			SQL:  "LOWER(p.name) LIKE ? OR LOWER(p.description) LIKE ?",
			Args: []any{like, like},
		})
	}
	if c.Brand != nil {
		q.Where = append(q.Where, Clause{SQL: "p.brand = ?", Args: []any{*c.Brand}})
	}
	if c.Edition != nil {
		q.Where = append(q.Where, Clause{SQL: "p.edition = ?", Args: []any{*c.Edition}})
	}
	if c.ReleaseYear != nil {
		q.Where = append(q.Where, Clause{SQL: "p.release_year = ?", Args: []any{*c.ReleaseYear}})
	}
	if c.Kind != nil {
		q.Where = append(q.Where, Clause{SQL: "p.kind = ?", Args: []any{string(*c.Kind)}})
	}
	if c.MembershipBenefit != nil {
		q.Where = append(q.Where, Clause{
			SQL:  "LOWER(COALESCE(p.benefits, '')) LIKE ?",
			Args: []any{"%" + strings.ToLower(*c.MembershipBenefit) + "%"},
		})
	}

	seen := make(map[string]bool, len(b.subqueries))
	for _, s := range b.subqueries {
		k := s.Entity + "|" + s.Key
		if seen[k] {
			continue
		}
		seen[k] = true
		q.Include = append(q.Include, s)
	}
	return q
}

// ProductListParams carries the raw catalog query-string parameters.
type ProductListParams struct {
	Category    string
	Tags        string
	PriceMin    string
	PriceMax    string
	Search      string
	Brand       string
	Edition     string
	ReleaseYear string
	Kind        string
	Benefit     string
	Page        int
	Limit       int
}

// ApplyParams feeds raw listing parameters through the builder.
// Unparseable numeric values are ignored rather than rejected.
func (b *ProductQueryBuilder) ApplyParams(p ProductListParams) *ProductQueryBuilder {
	page, limit := p.Page, p.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	b.WithPagination(page, limit).
		FilterByCategory(p.Category).
		FilterByTags(p.Tags).
		FilterByPrice(parseDecimal(p.PriceMin), parseDecimal(p.PriceMax)).
		Search(p.Search).
		FilterByBrand(p.Brand).
		FilterByEdition(p.Edition).
		FilterByKind(p.Kind).
		FilterByMembershipBenefit(p.Benefit)
	if y, err := strconv.Atoi(strings.TrimSpace(p.ReleaseYear)); err == nil {
		b.FilterByReleaseYear(y)
	}
	return b
}

// ParseIDList flattens comma-separated id lists, dropping blanks, zeros
// and non-numeric entries while keeping first-seen order.
func ParseIDList(values ...string) []uint64 {
	var out []uint64
	seen := make(map[uint64]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil || id == 0 || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func parseDecimal(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

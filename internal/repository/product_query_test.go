package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinecriticas/store/internal/model"
)

func TestBuilderDefaults(t *testing.T) {
	q := NewProductQueryBuilder().Build()
	assert.Equal(t, DefaultPageSize, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.Empty(t, q.Where)
	assert.Empty(t, q.Include)
	where, args := q.conditions()
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
	assert.Equal(t, "p.created_at DESC, p.id DESC", q.orderBy())
}

func TestBuilderPagination(t *testing.T) {
	q := NewProductQueryBuilder().WithPagination(2, 10).Build()
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 10, q.Offset)

	q = NewProductQueryBuilder().WithPagination(0, -5).Build()
	assert.Equal(t, 1, q.Limit)
	assert.Equal(t, 0, q.Offset)
}

func TestBuilderDeduplicatesSubQueries(t *testing.T) {
	q := NewProductQueryBuilder().
		FilterByCategory("3").
		FilterByCategory("3").
		FilterByCategory("Merch").
		FilterByTags("1,2").
		FilterByTags("1", "2").
		Build()

	require.Len(t, q.Include, 3)
	assert.Equal(t, "categories", q.Include[0].Entity)
	assert.Equal(t, "id=3", q.Include[0].Key)
	assert.Equal(t, "name=merch", q.Include[1].Key)
	assert.Equal(t, "tags", q.Include[2].Entity)
	assert.Equal(t, []any{uint64(1), uint64(2)}, q.Include[2].Args)
}

func TestBuilderIgnoresBlankAndInvalidInput(t *testing.T) {
	q := NewProductQueryBuilder().
		FilterByCategory("  ").
		FilterByTags("", "x,,0").
		Search("   ").
		FilterByKind("rental").
		FilterByReleaseYear(0).
		Build()
	assert.Empty(t, q.Where)
	assert.Empty(t, q.Include)
}

func TestBuilderScalarFilters(t *testing.T) {
	min := decimal.NewFromInt(10)
	max := decimal.RequireFromString("49.99")
	b := NewProductQueryBuilder().
		FilterByPrice(&min, &max).
		Search("Dune").
		FilterByMembershipBenefit("early access")
	q := b.Build()

	crit := b.Criteria()
	require.NotNil(t, crit.Kind)
	assert.Equal(t, model.KindMembership, *crit.Kind)

	where, args := q.conditions()
	assert.Contains(t, where, "p.price >= ?")
	assert.Contains(t, where, "p.price <= ?")
	assert.Contains(t, where, "LOWER(p.name) LIKE ?")
	assert.Contains(t, where, "p.kind = ?")
	assert.Equal(t, []any{"10", "49.99", "%dune%", "%dune%", "membership", "%early access%"}, args)
}

func TestApplyParams(t *testing.T) {
	q := NewProductQueryBuilder().ApplyParams(ProductListParams{
		Tags:        "4, 5,abc",
		PriceMin:    "not-a-number",
		PriceMax:    "20",
		ReleaseYear: "1999",
		Page:        3,
		Limit:       500,
	}).Build()

	assert.Equal(t, MaxPageSize, q.Limit)
	assert.Equal(t, 2*MaxPageSize, q.Offset)
	require.Len(t, q.Include, 1)
	assert.Equal(t, "ids=4,5", q.Include[0].Key)
	_, args := q.conditions()
	assert.Equal(t, []any{"20", 1999, uint64(4), uint64(5)}, args)
}

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []uint64{3, 1, 7}, ParseIDList("3,1", " 7 ,3", "", "-2", "x"))
	assert.Nil(t, ParseIDList())
}

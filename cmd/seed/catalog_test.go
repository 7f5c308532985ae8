package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cinecriticas/store/internal/model"
	"github.com/cinecriticas/store/internal/repository"
	"github.com/cinecriticas/store/internal/testutil"
)

const sampleCatalog = `
admin:
  email: Admin@CineCriticas.test
  name: Admin
  password: change-me-please
products:
  - name: Dune Steelbook
    price: "29.99"
    stock: 5
    sku: DUNE-001
    category: Coleccionables
    tags: [sci-fi, 4k]
    productable_type: Movie
    productable_id: 1
  - name: VIP Mensual
    price: "9.90"
    stock: 100
    kind: membership
    benefits: [preestrenos, descuentos]
`

func newSeeder(t *testing.T) (*seeder, *repository.ProductRepo) {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.Exec(t, db, `INSERT INTO movies (title, release_year) VALUES (?, ?)`, "Dune", 2021)
	products := repository.NewProductRepo(db, repository.NewTitleRepo(db), zap.NewNop())
	return &seeder{
		products:   products,
		categories: repository.NewCategoryRepo(db),
		users:      repository.NewUserRepo(db),
		bcryptCost: bcrypt.MinCost,
		log:        zap.NewNop(),
	}, products
}

func TestParseCatalog(t *testing.T) {
	c, err := parseCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.NotNil(t, c.Admin)
	require.Len(t, c.Products, 2)
	assert.Equal(t, "29.99", c.Products[0].Price.StringFixed(2))
	assert.Equal(t, []string{"sci-fi", "4k"}, c.Products[0].Tags)
	assert.Equal(t, model.KindMembership, c.Products[1].Kind)

	_, err = parseCatalog(strings.NewReader("products:\n  - name: x\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")

	empty, err := parseCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Products)
}

func TestSeedRunIsRepeatable(t *testing.T) {
	s, products := newSeeder(t)
	ctx := context.Background()
	c, err := parseCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	res, err := s.run(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Created: 2}, res)

	p, err := products.FindBySlug(ctx, "dune-steelbook")
	require.NoError(t, err)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Coleccionables", p.Category.Name)
	assert.Len(t, p.Tags, 2)
	require.NotNil(t, p.Productable)
	assert.Equal(t, "Dune", p.Productable.Title)

	admin, err := s.users.GetByEmail(ctx, "admin@cinecriticas.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	// the SKU collides on the second run; the membership has no SKU and
	// gets a suffixed slug instead
	res, err = s.run(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Created: 1, Skipped: 1}, res)
}

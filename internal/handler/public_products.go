package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinecriticas/store/internal/repository"
)

// PublicHandler serves the anonymous catalog endpoints.
type PublicHandler struct {
	Products   *repository.ProductRepo
	Categories *repository.CategoryRepo
}

func NewPublicHandler(products *repository.ProductRepo, categories *repository.CategoryRepo) *PublicHandler {
	return &PublicHandler{Products: products, Categories: categories}
}

// ListProducts filters the catalog with the query-string parameters
// category, tags, price_min, price_max, search, brand, edition,
// release_year, kind, benefit, page and limit.  A failing query yields
// an empty listing rather than an error.
func (h *PublicHandler) ListProducts(c echo.Context) error {
	q := repository.NewProductQueryBuilder().ApplyParams(repository.ProductListParams{
		Category:    c.QueryParam("category"),
		Tags:        c.QueryParam("tags"),
		PriceMin:    c.QueryParam("price_min"),
		PriceMax:    c.QueryParam("price_max"),
		Search:      c.QueryParam("search"),
		Brand:       c.QueryParam("brand"),
		Edition:     c.QueryParam("edition"),
		ReleaseYear: c.QueryParam("release_year"),
		Kind:        c.QueryParam("kind"),
		Benefit:     c.QueryParam("benefit"),
		Page:        queryInt(c, "page"),
		Limit:       queryInt(c, "limit"),
	}).Build()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	page := h.Products.FindWithQuery(ctx, q)
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"count":  page.Count,
		"data":   page.Rows,
	})
}

// GetProduct returns a product by id.
func (h *PublicHandler) GetProduct(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Products.FindByID(ctx, id)
	return productResponse(c, p, err)
}

// GetProductBySlug returns a product by slug.
func (h *PublicHandler) GetProductBySlug(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Products.FindBySlug(ctx, c.Param("slug"))
	return productResponse(c, p, err)
}

func productResponse(c echo.Context, p any, err error) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		return fail(c, http.StatusNotFound, "product not found")
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": p})
}

// ListCategories returns every category with its product count.
func (h *PublicHandler) ListCategories(c echo.Context) error {
	rows, err := h.Categories.ListCategories(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": rows})
}

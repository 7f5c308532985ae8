package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cinecriticas/store/internal/model"
	"github.com/cinecriticas/store/internal/repository"
)

// AdminProductHandler manages the catalog.  Routes are restricted to
// the ADMIN role.
type AdminProductHandler struct {
	Products *repository.ProductRepo
	Log      *zap.Logger
}

func NewAdminProductHandler(products *repository.ProductRepo, log *zap.Logger) *AdminProductHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminProductHandler{Products: products, Log: log}
}

type productReq struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Stock           int             `json:"stock"`
	Brand           string          `json:"brand"`
	SKU             *string         `json:"sku"`
	Edition         string          `json:"edition"`
	ReleaseYear     *int            `json:"release_year"`
	Kind            string          `json:"kind"`
	Benefits        []string        `json:"benefits"`
	ImageURL        string          `json:"image_url"`
	CategoryID      *uint64         `json:"category_id"`
	TagIDs          []uint64        `json:"tag_ids"`
	ProductableType string          `json:"productable_type"`
	ProductableID   uint64          `json:"productable_id"`
}

func (r productReq) input() repository.ProductInput {
	return repository.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Brand:       r.Brand,
		SKU:         r.SKU,
		Edition:     r.Edition,
		ReleaseYear: r.ReleaseYear,
		Kind:        model.ProductKind(strings.ToLower(strings.TrimSpace(r.Kind))),
		Benefits:    r.Benefits,
		ImageURL:    r.ImageURL,
		CategoryID:  r.CategoryID,
		TagIDs:      r.TagIDs,
		Target: model.ParseTarget(
			sql.NullString{String: r.ProductableType, Valid: r.ProductableType != ""},
			sql.NullInt64{Int64: int64(r.ProductableID), Valid: r.ProductableID != 0},
		),
	}
}

func (h *AdminProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	p, err := h.Products.Create(c.Request().Context(), req.input())
	if err != nil {
		return h.writeFailure(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": p})
}

// Update replaces every writable field of the product.
func (h *AdminProductHandler) Update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	p, err := h.Products.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return h.writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": p})
}

func (h *AdminProductHandler) Delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid product id")
	}
	if err := h.Products.Delete(c.Request().Context(), id); err != nil {
		return h.writeFailure(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminProductHandler) writeFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidProduct):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		return fail(c, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, err.Error())
	}
	h.Log.Error("product write failed", zap.Error(err))
	return fail(c, http.StatusInternalServerError, "write failed")
}

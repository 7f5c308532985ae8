package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cinecriticas/store/internal/middleware"
	"github.com/cinecriticas/store/internal/service"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the authenticated user id set by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, errNoUser
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	return n
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}

// orderFailure renders an order service error.  Validation, not-found
// and conflict failures are client errors (400); payment and internal
// failures are 500.
func orderFailure(c echo.Context, err error) error {
	var oe *service.OrderError
	if !errors.As(err, &oe) {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false, "error": "internal error", "code": service.CodeInternal,
		})
	}
	status := http.StatusBadRequest
	msg := orderMessage(oe)
	switch oe.Kind {
	case service.KindPayment:
		status = http.StatusInternalServerError
	case service.KindInternal:
		status = http.StatusInternalServerError
		msg = "internal error"
	}
	body := echo.Map{"success": false, "error": msg, "code": oe.Code}
	if oe.ProductID != 0 {
		body["product_id"] = oe.ProductID
	}
	return c.JSON(status, body)
}

func orderMessage(oe *service.OrderError) string {
	switch oe.Code {
	case service.CodeNoItems:
		return "order must contain at least one item"
	case service.CodeInvalidItem:
		return "each item needs a productId and a quantity greater than zero"
	case service.CodeInvalidPaymentMethod:
		return "unsupported payment method"
	case service.CodeProductNotFound:
		return "product not found"
	case service.CodeInsufficientStock:
		return "insufficient stock"
	case service.CodePaymentFailed:
		return "payment failed"
	}
	return oe.Code
}

package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/cinecriticas/store/internal/repository"
	"github.com/cinecriticas/store/internal/service"
)

// OrderHandler serves the authenticated /api/orders endpoints.
type OrderHandler struct {
	Orders *service.OrderService
	Log    *zap.Logger
}

func NewOrderHandler(orders *service.OrderService, log *zap.Logger) *OrderHandler {
	if orders == nil {
		panic("nil order service passed to NewOrderHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{Orders: orders, Log: log}
}

// createOrderReq is the checkout body.  camelCase is the documented
// shape; snake_case spellings are accepted as well.
type createOrderReq struct {
	Items               []orderItemReq `json:"items"`
	PaymentMethod       string         `json:"paymentMethod"`
	PaymentDetails      map[string]any `json:"paymentDetails"`
	PaymentMethodSnake  string         `json:"payment_method"`
	PaymentDetailsSnake map[string]any `json:"payment_details"`
}

type orderItemReq struct {
	ProductID      uint64 `json:"productId"`
	ProductIDSnake uint64 `json:"product_id"`
	Quantity       int    `json:"quantity"`
}

func (r createOrderReq) items() []service.ItemRequest {
	out := make([]service.ItemRequest, len(r.Items))
	for i, it := range r.Items {
		id := it.ProductID
		if id == 0 {
			id = it.ProductIDSnake
		}
		out[i] = service.ItemRequest{ProductID: id, Quantity: it.Quantity}
	}
	return out
}

func (r createOrderReq) method() string {
	if r.PaymentMethod != "" {
		return r.PaymentMethod
	}
	return r.PaymentMethodSnake
}

func (r createOrderReq) details() map[string]any {
	if r.PaymentDetails != nil {
		return r.PaymentDetails
	}
	return r.PaymentDetailsSnake
}

// Create places an order for the caller.  The request context bounds
// the whole purchase, including the gateway call.
func (h *OrderHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.CreateOrder(c.Request().Context(), uid, req.items(), req.method(), req.details())
	if err != nil {
		var oe *service.OrderError
		if errors.As(err, &oe) && oe.Kind == service.KindInternal {
			h.Log.Error("create order failed", zap.Uint64("user_id", uid), zap.Error(err))
		}
		return orderFailure(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": order})
}

// List returns the caller's orders, newest first.
func (h *OrderHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	page, err := h.Orders.ListOrdersForUser(c.Request().Context(), uid, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		h.Log.Error("list orders failed", zap.Uint64("user_id", uid), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": page})
}

// Get returns one of the caller's orders.  Orders owned by someone else
// are reported as missing.
func (h *OrderHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "invalid order id")
	}
	order, err := h.Orders.GetOrderByID(c.Request().Context(), uid, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return fail(c, http.StatusNotFound, "order not found")
	}
	if err != nil {
		h.Log.Error("get order failed", zap.Uint64("order_id", id), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": order})
}

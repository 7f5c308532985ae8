// Package service holds the order purchase flow.  OrderService wraps
// stock validation, payment and persistence in a single database
// transaction so callers only ever observe a completed order or a typed
// failure.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cinecriticas/store/internal/model"
	"github.com/cinecriticas/store/internal/payment"
	"github.com/cinecriticas/store/internal/queue"
	"github.com/cinecriticas/store/internal/repository"
)

// Order listing page sizes.
const (
	DefaultOrderPageSize = 10
	MaxOrderPageSize     = 100
)

// MaxItemQuantity bounds a single line and the summed quantity of one
// product across lines.
const MaxItemQuantity = math.MaxInt32

// StockStore is the product access the purchase flow needs inside its
// transaction.  *repository.ProductRepo implements it.
type StockStore interface {
	GetForOrderTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Product, error)
	DecrementStockTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error
}

// EventPublisher receives order side-channel events.  Failures are
// logged by the service and never fail a request.
type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, ev queue.OrderCompletedEvent) error
	PublishPaymentReconcile(ctx context.Context, ev queue.PaymentReconcileEvent) error
}

// ItemRequest is one requested order line.
type ItemRequest struct {
	ProductID uint64 `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderPage is one page of a user's orders.
type OrderPage struct {
	Count int64          `json:"count"`
	Rows  []*model.Order `json:"rows"`
}

// OrderService creates and reads orders.
type OrderService struct {
	db       *sql.DB
	products StockStore
	orders   *repository.OrderRepo
	payments *payment.Registry
	events   EventPublisher
	log      *zap.Logger
	currency string
	now      func() time.Time
}

// NewOrderService wires the purchase flow.  events may be nil.
func NewOrderService(
	db *sql.DB,
	products StockStore,
	orders *repository.OrderRepo,
	payments *payment.Registry,
	events EventPublisher,
	log *zap.Logger,
	currency string,
) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	if currency == "" {
		currency = "USD"
	}
	return &OrderService{
		db:       db,
		products: products,
		orders:   orders,
		payments: payments,
		events:   events,
		log:      log,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// pricedLine is a validated request line with its frozen unit price.
type pricedLine struct {
	product *model.Product
	qty     int
}

// CreateOrder validates the requested lines, charges the payment method
// and persists the order.  Stock, orders and order items are left
// untouched unless the whole operation succeeds.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, items []ItemRequest, method string, details map[string]any) (*model.Order, error) {
	// validating: shape only, no I/O
	if len(items) == 0 {
		return nil, newOrderError(KindValidation, CodeNoItems, 0, errors.New("order has no items"))
	}
	wanted := make(map[uint64]int, len(items))
	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		if it.ProductID == 0 || it.Quantity <= 0 || it.Quantity > MaxItemQuantity {
			return nil, newOrderError(KindValidation, CodeInvalidItem, it.ProductID,
				fmt.Errorf("quantity must be between 1 and %d and product_id set", MaxItemQuantity))
		}
		prev, seen := wanted[it.ProductID]
		if !seen {
			ids = append(ids, it.ProductID)
		}
		if prev > MaxItemQuantity-it.Quantity {
			return nil, newOrderError(KindValidation, CodeInvalidItem, it.ProductID,
				fmt.Errorf("total quantity exceeds %d", MaxItemQuantity))
		}
		wanted[it.ProductID] = prev + it.Quantity
	}
	methodName, strategy, err := s.payments.Resolve(method)
	if err != nil {
		return nil, newOrderError(KindValidation, CodeInvalidPaymentMethod, 0, err)
	}

	log := s.log.With(zap.Uint64("user_id", userID), zap.String("payment_method", methodName))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, internalError(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// stock verification and price snapshot
	products := make(map[uint64]*model.Product, len(ids))
	for _, id := range ids {
		p, err := s.products.GetForOrderTx(ctx, tx, id)
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, newOrderError(KindNotFound, CodeProductNotFound, id, err)
		}
		if err != nil {
			return nil, internalError(err)
		}
		if p.Stock < wanted[id] {
			return nil, newOrderError(KindConflict, CodeInsufficientStock, id,
				fmt.Errorf("requested %d, %d in stock", wanted[id], p.Stock))
		}
		products[id] = p
	}
	lines := make([]pricedLine, len(items))
	total := decimal.Zero
	for i, it := range items {
		p := products[it.ProductID]
		lines[i] = pricedLine{product: p, qty: it.Quantity}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	// charging
	reference := uuid.NewString()
	res, err := strategy.ProcessPayment(ctx, payment.Request{
		Amount:    total,
		Currency:  s.currency,
		Details:   details,
		Reference: reference,
	})
	if err == nil && !res.Success {
		err = payment.ErrDeclined
	}
	if err != nil {
		log.Warn("payment failed", zap.String("amount", total.StringFixed(2)), zap.Error(err))
		return nil, newOrderError(KindPayment, CodePaymentFailed, 0, err)
	}
	paymentRef := res.TransactionID
	if paymentRef == "" {
		paymentRef = reference
	}

	// committing
	order := &model.Order{
		UserID:        userID,
		Status:        model.OrderCompleted,
		TotalAmount:   total,
		Currency:      s.currency,
		PaymentMethod: methodName,
		PaymentRef:    &paymentRef,
		CreatedAt:     s.now(),
	}
	if err := s.commit(ctx, tx, order, ids, wanted, lines); err != nil {
		s.reconcile(ctx, log, order, lines, err)
		var oe *OrderError
		if errors.As(err, &oe) {
			return nil, oe
		}
		return nil, internalError(err)
	}
	committed = true

	log.Info("order completed", zap.Uint64("order_id", order.ID), zap.String("total", total.StringFixed(2)))
	s.publishCompleted(ctx, log, order, lines)

	full, err := s.orders.GetByIDForUser(ctx, order.ID, userID)
	if err != nil {
		log.Warn("reload of committed order failed", zap.Uint64("order_id", order.ID), zap.Error(err))
		order.Items = itemsFromLines(order.ID, lines)
		return order, nil
	}
	return full, nil
}

func (s *OrderService) commit(ctx context.Context, tx *sql.Tx, order *model.Order, ids []uint64, wanted map[uint64]int, lines []pricedLine) error {
	for _, id := range ids {
		if err := s.products.DecrementStockTx(ctx, tx, id, wanted[id]); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return newOrderError(KindConflict, CodeInsufficientStock, id, err)
			}
			return err
		}
	}
	if err := s.orders.CreateTx(ctx, tx, order); err != nil {
		return err
	}
	if err := s.orders.CreateItemsBulkTx(ctx, tx, order.ID, itemsFromLines(order.ID, lines)); err != nil {
		return err
	}
	return tx.Commit()
}

func itemsFromLines(orderID uint64, lines []pricedLine) []model.OrderItem {
	out := make([]model.OrderItem, len(lines))
	for i, l := range lines {
		out[i] = model.OrderItem{
			OrderID:   orderID,
			ProductID: l.product.ID,
			Quantity:  l.qty,
			UnitPrice: l.product.Price,
			Product: &model.ProductSummary{
				ID:    l.product.ID,
				Name:  l.product.Name,
				Slug:  l.product.Slug,
				Kind:  l.product.Kind,
				Price: l.product.Price,
			},
		}
	}
	return out
}

func eventLines(lines []pricedLine) []queue.OrderLine {
	out := make([]queue.OrderLine, len(lines))
	for i, l := range lines {
		out[i] = queue.OrderLine{
			ProductID: l.product.ID,
			Name:      l.product.Name,
			Quantity:  l.qty,
			UnitPrice: l.product.Price.StringFixed(2),
		}
	}
	return out
}

// reconcile reports a charge that succeeded at the gateway for an order
// that could not be stored.  No refund is attempted.
func (s *OrderService) reconcile(ctx context.Context, log *zap.Logger, order *model.Order, lines []pricedLine, cause error) {
	ref := ""
	if order.PaymentRef != nil {
		ref = *order.PaymentRef
	}
	log.Error("order commit failed after successful payment",
		zap.String("payment_ref", ref),
		zap.String("amount", order.TotalAmount.StringFixed(2)),
		zap.Error(cause))
	if s.events == nil {
		return
	}
	ev := queue.PaymentReconcileEvent{
		UserID:        order.UserID,
		Amount:        order.TotalAmount.StringFixed(2),
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		PaymentRef:    ref,
		Reason:        cause.Error(),
		Items:         eventLines(lines),
		OccurredAt:    s.now().Format(time.RFC3339),
	}
	if err := s.events.PublishPaymentReconcile(context.WithoutCancel(ctx), ev); err != nil {
		log.Error("publish payment.reconcile failed", zap.String("payment_ref", ref), zap.Error(err))
	}
}

func (s *OrderService) publishCompleted(ctx context.Context, log *zap.Logger, order *model.Order, lines []pricedLine) {
	if s.events == nil {
		return
	}
	ref := ""
	if order.PaymentRef != nil {
		ref = *order.PaymentRef
	}
	ev := queue.OrderCompletedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount.StringFixed(2),
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		PaymentRef:    ref,
		Items:         eventLines(lines),
		CompletedAt:   order.CreatedAt.Format(time.RFC3339),
	}
	if err := s.events.PublishOrderCompleted(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn("publish order.completed failed", zap.Uint64("order_id", order.ID), zap.Error(err))
	}
}

// ListOrdersForUser returns the user's orders, newest first.
func (s *OrderService) ListOrdersForUser(ctx context.Context, userID uint64, page, limit int) (OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultOrderPageSize
	}
	if limit > MaxOrderPageSize {
		limit = MaxOrderPageSize
	}
	rows, count, err := s.orders.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return OrderPage{}, err
	}
	return OrderPage{Count: count, Rows: rows}, nil
}

// GetOrderByID returns the order only when userID owns it; otherwise
// repository.ErrOrderNotFound.
func (s *OrderService) GetOrderByID(ctx context.Context, userID, orderID uint64) (*model.Order, error) {
	return s.orders.GetByIDForUser(ctx, orderID, userID)
}

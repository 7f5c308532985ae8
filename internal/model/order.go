package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.  Orders created by the purchase flow are written
// directly as COMPLETED; PENDING and FAILED exist for later processes.
const (
	OrderPending   = "PENDING"
	OrderCompleted = "COMPLETED"
	OrderFailed    = "FAILED"
)

// Order records a completed purchase owned by one user.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – owner of the order.
//	Status        – PENDING, COMPLETED or FAILED.
//	TotalAmount   – sum of quantity * unit_price over Items.
//	Currency      – currency the payment was settled in.
//	PaymentMethod – normalized payment method name.
//	PaymentRef    – gateway transaction id, if the gateway returned one.
//	CreatedAt     – creation timestamp.
type Order struct {
	ID            uint64          `json:"id"`                    // orders.id
	UserID        uint64          `json:"user_id"`               // orders.user_id
	Status        string          `json:"status"`                // orders.status
	TotalAmount   decimal.Decimal `json:"total_amount"`          // orders.total_amount
	Currency      string          `json:"currency"`              // orders.currency
	PaymentMethod string          `json:"payment_method"`        // orders.payment_method
	PaymentRef    *string         `json:"payment_ref,omitempty"` // orders.payment_ref
	CreatedAt     time.Time       `json:"created_at"`            // orders.created_at
	Items         []OrderItem     `json:"items"`
}

// OrderItem is one product line of an order.  UnitPrice is the price
// read when the order was validated and is never updated afterwards.
type OrderItem struct {
	ID        uint64          `json:"id"`         // order_items.id
	OrderID   uint64          `json:"order_id"`   // order_items.order_id
	ProductID uint64          `json:"product_id"` // order_items.product_id
	Quantity  int             `json:"quantity"`   // order_items.quantity
	UnitPrice decimal.Decimal `json:"unit_price"` // order_items.unit_price

	Product *ProductSummary `json:"product,omitempty"`
}

// Subtotal returns quantity * unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ProductSummary is the product data shown next to an order line.
type ProductSummary struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Kind     ProductKind     `json:"kind"`
	Price    decimal.Decimal `json:"current_price"`
	ImageURL string          `json:"image_url,omitempty"`
}

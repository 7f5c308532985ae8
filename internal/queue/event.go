// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Both queues are durable.
const (
	OrderCompletedQueue   = "order.completed"
	PaymentReconcileQueue = "payment.reconcile"
)

// OrderLine is one product line inside an order event.
type OrderLine struct {
	ProductID uint64 `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderCompletedEvent is published after an order has been committed.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.
type OrderCompletedEvent struct {
	OrderID       uint64      `json:"order_id"`
	UserID        uint64      `json:"user_id"`
	TotalAmount   string      `json:"total_amount"`
	Currency      string      `json:"currency"`
	PaymentMethod string      `json:"payment_method"`
	PaymentRef    string      `json:"payment_ref,omitempty"`
	Items         []OrderLine `json:"items"`
	CompletedAt   string      `json:"completed_at"`
}

// PaymentReconcileEvent is published when a charge succeeded at the
// gateway but the order could not be stored.  Someone has to refund or
// replay it by hand.
type PaymentReconcileEvent struct {
	UserID        uint64      `json:"user_id"`
	Amount        string      `json:"amount"`
	Currency      string      `json:"currency"`
	PaymentMethod string      `json:"payment_method"`
	PaymentRef    string      `json:"payment_ref,omitempty"`
	Reason        string      `json:"reason"`
	Items         []OrderLine `json:"items"`
	OccurredAt    string      `json:"occurred_at"`
}

package service

import (
	"errors"
	"fmt"
)

// Kind groups order failures by how a caller should react to them.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindPayment
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPayment:
		return "payment"
	default:
		return "internal"
	}
}

// Machine-readable failure codes returned to API clients.
const (
	CodeNoItems              = "NO_ITEMS"
	CodeInvalidItem          = "INVALID_ITEM"
	CodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	CodeProductNotFound      = "PRODUCT_NOT_FOUND"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodePaymentFailed        = "PAYMENT_FAILED"
	CodeInternal             = "INTERNAL"
)

// OrderError is the typed failure returned by CreateOrder.  ProductID
// names the offending product when the failure concerns one.
type OrderError struct {
	Kind      Kind
	Code      string
	ProductID uint64
	Err       error
}

func (e *OrderError) Error() string {
	msg := e.Code
	if e.ProductID != 0 {
		msg = fmt.Sprintf("%s (product %d)", msg, e.ProductID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OrderError) Unwrap() error { return e.Err }

// Is matches any *OrderError carrying the same code, so callers can
// write errors.Is(err, service.ErrInsufficientStock).
func (e *OrderError) Is(target error) bool {
	var t *OrderError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNoItems              = &OrderError{Kind: KindValidation, Code: CodeNoItems}
	ErrInvalidItem          = &OrderError{Kind: KindValidation, Code: CodeInvalidItem}
	ErrInvalidPaymentMethod = &OrderError{Kind: KindValidation, Code: CodeInvalidPaymentMethod}
	ErrProductNotFound      = &OrderError{Kind: KindNotFound, Code: CodeProductNotFound}
	ErrInsufficientStock    = &OrderError{Kind: KindConflict, Code: CodeInsufficientStock}
	ErrPaymentFailed        = &OrderError{Kind: KindPayment, Code: CodePaymentFailed}
)

func newOrderError(kind Kind, code string, productID uint64, err error) *OrderError {
	return &OrderError{Kind: kind, Code: code, ProductID: productID, Err: err}
}

func internalError(err error) *OrderError {
	return newOrderError(KindInternal, CodeInternal, 0, err)
}

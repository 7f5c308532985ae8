// Package payment settles order totals with external gateways.  The
// order service only sees the Strategy interface; concrete strategies
// are picked by payment method through a Registry.
package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownMethod is returned by Registry.Resolve in strict mode when
// the method names no registered strategy.
var ErrUnknownMethod = errors.New("unknown payment method")

// ErrDeclined is returned when a gateway answered but did not approve
// the charge.
var ErrDeclined = errors.New("payment declined")

// Request describes one charge.  Reference is a caller-chosen
// identifier forwarded to the gateway as the idempotency key.
type Request struct {
	Amount    decimal.Decimal
	Currency  string
	Details   map[string]any
	Reference string
}

// Result is the gateway outcome.  Data holds the decoded response body
// and TransactionID the gateway's reference when it returned one.
type Result struct {
	Success       bool
	Data          map[string]any
	TransactionID string
}

// Strategy charges a payment.  Implementations must never report
// Success for a transport failure or an unreadable response.
type Strategy interface {
	ProcessPayment(ctx context.Context, req Request) (Result, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, req Request) (Result, error)

func (f StrategyFunc) ProcessPayment(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Method names accepted by the registry after normalization.
const (
	MethodCard   = "card"
	MethodPayPal = "paypal"
)

var aliases = map[string]string{
	"card":        MethodCard,
	"credit_card": MethodCard,
	"creditcard":  MethodCard,
	"credit-card": MethodCard,
	"paypal":      MethodPayPal,
	"pay_pal":     MethodPayPal,
}

// NormalizeMethod maps a client supplied method name to its canonical
// form.  The second result is false for unknown names.
func NormalizeMethod(method string) (string, bool) {
	m, ok := aliases[strings.ToLower(strings.TrimSpace(method))]
	return m, ok
}

// Registry maps canonical method names to strategies.
type Registry struct {
	strategies map[string]Strategy
	strict     bool
}

// NewRegistry returns an empty registry.  In strict mode unknown methods
// are rejected; otherwise they fall back to the card strategy.
func NewRegistry(strict bool) *Registry {
	return &Registry{strategies: make(map[string]Strategy), strict: strict}
}

// Register binds a strategy to a canonical method name.
func (r *Registry) Register(method string, s Strategy) {
	r.strategies[strings.ToLower(method)] = s
}

// Resolve returns the canonical method name and its strategy.
func (r *Registry) Resolve(method string) (string, Strategy, error) {
	name, ok := NormalizeMethod(method)
	if ok {
		if s, found := r.strategies[name]; found {
			return name, s, nil
		}
	}
	if r.strict {
		return "", nil, ErrUnknownMethod
	}
	s, found := r.strategies[MethodCard]
	if !found {
		return "", nil, ErrUnknownMethod
	}
	return MethodCard, s, nil
}

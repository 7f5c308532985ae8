package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewaySuccess(t *testing.T) {
	var got map[string]any
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"approved","transaction_id":"tx-123"}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, time.Second)
	res, err := g.ProcessPayment(context.Background(), Request{
		Amount:    decimal.RequireFromString("59.9"),
		Currency:  "USD",
		Details:   map[string]any{"token": "tok_visa", "amount": "ignored"},
		Reference: "ref-1",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "tx-123", res.TransactionID)
	assert.Equal(t, "approved", res.Data["status"])

	assert.Equal(t, "59.90", got["amount"])
	assert.Equal(t, "USD", got["currency"])
	assert.Equal(t, "tok_visa", got["token"])
	assert.Equal(t, "ref-1", key)
}

func TestHTTPGatewayFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":"card declined"}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>ok</html>`))
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
		{"declined flag", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"reason":"insufficient funds"}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`{"success":true}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			g := NewHTTPGateway(srv.URL, 100*time.Millisecond)
			res, err := g.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(1), Currency: "USD"})
			assert.Error(t, err)
			assert.False(t, res.Success)
		})
	}
}

func TestHTTPGatewayUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res, err := NewHTTPGateway(url, time.Second).ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
	assert.False(t, res.Success)
}

func TestHTTPGatewayGeneratesIdempotencyKey(t *testing.T) {
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer srv.Close()

	res, err := NewHTTPGateway(srv.URL, time.Second).ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.Equal(t, "42", res.TransactionID)
	assert.Len(t, key, 36)
}

func TestRegistryResolve(t *testing.T) {
	card := StrategyFunc(func(context.Context, Request) (Result, error) { return Result{Success: true}, nil })
	paypal := StrategyFunc(func(context.Context, Request) (Result, error) { return Result{Success: true}, nil })

	strict := NewRegistry(true)
	strict.Register(MethodCard, card)
	strict.Register(MethodPayPal, paypal)

	for _, m := range []string{"card", " Credit_Card ", "CREDITCARD"} {
		name, s, err := strict.Resolve(m)
		require.NoError(t, err, m)
		assert.Equal(t, MethodCard, name)
		assert.NotNil(t, s)
	}
	name, _, err := strict.Resolve("PayPal")
	require.NoError(t, err)
	assert.Equal(t, MethodPayPal, name)

	_, _, err = strict.Resolve("bitcoin")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	lenient := NewRegistry(false)
	lenient.Register(MethodCard, card)
	name, _, err = lenient.Resolve("crd")
	require.NoError(t, err)
	assert.Equal(t, MethodCard, name)

	empty := NewRegistry(false)
	_, _, err = empty.Resolve("card")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

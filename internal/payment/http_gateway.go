package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxResponseBytes caps how much of a gateway response is read.
const maxResponseBytes = 1 << 20

// HTTPGateway posts charges as JSON to a remote payment endpoint.
type HTTPGateway struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGateway returns a gateway posting to endpoint.  A non-positive
// timeout falls back to 10 seconds.
func NewHTTPGateway(endpoint string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// ProcessPayment sends {amount, currency, ...details}.  Only a 2xx
// response with a JSON object body counts as success; a body carrying
// "success": false is treated as a decline.
func (g *HTTPGateway) ProcessPayment(ctx context.Context, req Request) (Result, error) {
	body := make(map[string]any, len(req.Details)+2)
	for k, v := range req.Details {
		body[k] = v
	}
	body["amount"] = req.Amount.StringFixed(2)
	body["currency"] = req.Currency

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode payment request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build payment request: %w", err)
	}
	key := req.Reference
	if key == "" {
		key = uuid.NewString()
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Idempotency-Key", key)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read payment response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return Result{}, fmt.Errorf("payment gateway returned a malformed body")
	}
	if ok, present := data["success"].(bool); present && !ok {
		return Result{Data: data}, ErrDeclined
	}
	return Result{Success: true, Data: data, TransactionID: transactionID(data)}, nil
}

func transactionID(data map[string]any) string {
	for _, k := range []string{"transaction_id", "transactionId", "id", "reference"} {
		switch v := data[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

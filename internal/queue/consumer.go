package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Log files written under the consumer directory.
const (
	OrdersLogFile         = "orders.log"
	ReconciliationLogFile = "reconciliation.log"
)

// Consumer listens to the order queues and appends one human-readable
// line per event to an audit log.
type Consumer struct {
	url string
	dir string
	log *zap.Logger
}

// NewConsumer returns a consumer writing its logs under dir.
func NewConsumer(url, dir string, log *zap.Logger) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	if dir == "" {
		dir = "logs"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, dir: dir, log: log}
}

// Run connects to RabbitMQ and consumes both queues until ctx is
// cancelled, reconnecting with exponential backoff.  Messages that
// cannot be handled are rejected without requeue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("order-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("order-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("order-consumer: set QoS failed", zap.Error(err))
	}

	orders, err := c.subscribe(ch, OrderCompletedQueue)
	if err != nil {
		return err
	}
	reconcile, err := c.subscribe(ch, PaymentReconcileQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-orders:
			queue = OrderCompletedQueue
		case d, ok = <-reconcile:
			queue = PaymentReconcileQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handleMessage(queue, d.Body); err != nil {
			c.log.Error("order-consumer: handle message failed", zap.String("queue", queue), zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) subscribe(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", name, err)
	}
	msgs, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", name, err)
	}
	return msgs, nil
}

func (c *Consumer) handleMessage(queue string, body []byte) error {
	var (
		file string
		line string
	)
	switch queue {
	case OrderCompletedQueue:
		var ev OrderCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		file = OrdersLogFile
		line = fmt.Sprintf("[%s] Order completed | order_id=%d | user_id=%d | total=%s %s | method=%s | ref=%s | items=%s\n",
			ev.CompletedAt, ev.OrderID, ev.UserID, ev.TotalAmount, ev.Currency, ev.PaymentMethod, ev.PaymentRef, formatLines(ev.Items))
	case PaymentReconcileQueue:
		var ev PaymentReconcileEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		file = ReconciliationLogFile
		line = fmt.Sprintf("[%s] Payment needs reconciliation | user_id=%d | amount=%s %s | method=%s | ref=%s | reason=%q | items=%s\n",
			ev.OccurredAt, ev.UserID, ev.Amount, ev.Currency, ev.PaymentMethod, ev.PaymentRef, ev.Reason, formatLines(ev.Items))
	default:
		return fmt.Errorf("unexpected queue %q", queue)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLines(lines []OrderLine) string {
	if len(lines) == 0 {
		return "[]"
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%dx#%d@%s", l.Quantity, l.ProductID, l.UnitPrice)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cinecriticas/store/internal/model"
	"github.com/cinecriticas/store/internal/payment"
	"github.com/cinecriticas/store/internal/queue"
	"github.com/cinecriticas/store/internal/repository"
	"github.com/cinecriticas/store/internal/testutil"
)

type recordingPublisher struct {
	mu        sync.Mutex
	completed []queue.OrderCompletedEvent
	reconcile []queue.PaymentReconcileEvent
	fail      bool
}

func (p *recordingPublisher) PublishOrderCompleted(_ context.Context, ev queue.OrderCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.completed = append(p.completed, ev)
	return nil
}

func (p *recordingPublisher) PublishPaymentReconcile(_ context.Context, ev queue.PaymentReconcileEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconcile = append(p.reconcile, ev)
	return nil
}

type fixture struct {
	db       *sql.DB
	products *repository.ProductRepo
	svc      *OrderService
	events   *recordingPublisher
	charges  atomic.Int32
	decline  atomic.Bool
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testutil.NewDB(t), events: &recordingPublisher{}}
	core, logs := observer.New(zapcore.InfoLevel)
	f.logs = logs
	log := zap.New(core)

	f.products = repository.NewProductRepo(f.db, repository.NewTitleRepo(f.db), log)
	registry := payment.NewRegistry(true)
	registry.Register(payment.MethodCard, payment.StrategyFunc(func(_ context.Context, req payment.Request) (payment.Result, error) {
		f.charges.Add(1)
		if f.decline.Load() {
			return payment.Result{Success: false, Data: map[string]any{"reason": "declined"}}, nil
		}
		return payment.Result{Success: true, TransactionID: "tx-" + req.Amount.StringFixed(2)}, nil
	}))
	f.svc = NewOrderService(f.db, f.products, repository.NewOrderRepo(f.db), registry, f.events, log, "USD")

	var tick atomic.Int64
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }
	return f
}

func (f *fixture) product(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), repository.ProductInput{
		Name: name, Price: decimal.RequireFromString(price), Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id uint64) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestCreateOrderSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "Blu-ray Alien", "10", 5)
	b := f.product(t, "Póster Alien", "25.50", 2)

	order, err := f.svc.CreateOrder(ctx, 1, []ItemRequest{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 1},
	}, "Credit_Card", map[string]any{"token": "tok"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderCompleted, order.Status)
	assert.Equal(t, "45.50", order.TotalAmount.StringFixed(2))
	assert.Equal(t, payment.MethodCard, order.PaymentMethod)
	require.NotNil(t, order.PaymentRef)
	assert.Equal(t, "tx-45.50", *order.PaymentRef)
	require.Len(t, order.Items, 2)
	sum := decimal.Zero
	for _, it := range order.Items {
		sum = sum.Add(it.Subtotal())
		require.NotNil(t, it.Product)
	}
	assert.True(t, sum.Equal(order.TotalAmount))

	assert.Equal(t, 3, f.stock(t, a.ID))
	assert.Equal(t, 1, f.stock(t, b.ID))

	require.Len(t, f.events.completed, 1)
	assert.Equal(t, order.ID, f.events.completed[0].OrderID)
	assert.Equal(t, "45.50", f.events.completed[0].TotalAmount)
	assert.Equal(t, 1, f.logs.FilterMessage("order completed").Len())
}

func TestCreateOrderValidationFailures(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Funko", "12", 3)

	cases := []struct {
		name      string
		items     []ItemRequest
		method    string
		want      error
		kind      Kind
		productID uint64
	}{
		{"no items", nil, "card", ErrNoItems, KindValidation, 0},
		{"zero quantity", []ItemRequest{{ProductID: p.ID, Quantity: 0}}, "card", ErrInvalidItem, KindValidation, p.ID},
		{"missing product id", []ItemRequest{{Quantity: 1}}, "card", ErrInvalidItem, KindValidation, 0},
		{"unknown method", []ItemRequest{{ProductID: p.ID, Quantity: 1}}, "bitcoin", ErrInvalidPaymentMethod, KindValidation, 0},
		{"unknown product", []ItemRequest{{ProductID: 9999, Quantity: 1}}, "card", ErrProductNotFound, KindNotFound, 9999},
		{"insufficient stock", []ItemRequest{{ProductID: p.ID, Quantity: 4}}, "card", ErrInsufficientStock, KindConflict, p.ID},
		{"quantity above line maximum", []ItemRequest{{ProductID: p.ID, Quantity: math.MaxInt}}, "card", ErrInvalidItem, KindValidation, p.ID},
		{"summed lines overflow", []ItemRequest{{ProductID: p.ID, Quantity: MaxItemQuantity}, {ProductID: p.ID, Quantity: 2}}, "card", ErrInvalidItem, KindValidation, p.ID},
		{"duplicate lines exceed stock", []ItemRequest{{ProductID: p.ID, Quantity: 2}, {ProductID: p.ID, Quantity: 2}}, "card", ErrInsufficientStock, KindConflict, p.ID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(context.Background(), 1, tc.items, tc.method, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var oe *OrderError
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, tc.kind, oe.Kind)
			assert.Equal(t, tc.productID, oe.ProductID)
		})
	}

	assert.EqualValues(t, 0, f.charges.Load(), "payment must not be attempted")
	assert.Equal(t, 3, f.stock(t, p.ID))
	assert.Equal(t, 0, f.count(t, "orders"))
}

func TestCreateOrderPaymentDeclinedLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Steelbook", "30", 2)
	f.decline.Store(true)

	_, err := f.svc.CreateOrder(context.Background(), 1, []ItemRequest{{ProductID: p.ID, Quantity: 1}}, "card", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, payment.ErrDeclined)

	assert.EqualValues(t, 1, f.charges.Load())
	assert.Equal(t, 2, f.stock(t, p.ID))
	assert.Equal(t, 0, f.count(t, "orders"))
	assert.Equal(t, 0, f.count(t, "order_items"))
	assert.Empty(t, f.events.completed)
	assert.Empty(t, f.events.reconcile)
}

func TestCreateOrderPaymentTransportError(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Taza", "8", 1)
	registry := payment.NewRegistry(true)
	registry.Register(payment.MethodPayPal, payment.StrategyFunc(func(context.Context, payment.Request) (payment.Result, error) {
		return payment.Result{}, errors.New("connection reset")
	}))
	f.svc.payments = registry

	_, err := f.svc.CreateOrder(context.Background(), 1, []ItemRequest{{ProductID: p.ID, Quantity: 1}}, "paypal", nil)
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, 1, f.stock(t, p.ID))
}

// The test database has a single connection, so buyers are serialized
// here; TestCreateOrderLosesStockRaceAfterCharge covers the decrement
// losing a race.
func TestCreateOrderNoOversellUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Edición limitada", "99", 5)

	const buyers = 12
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), user, []ItemRequest{{ProductID: p.ID, Quantity: 1}}, "card", nil)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	assert.EqualValues(t, 5, succeeded.Load())
	assert.EqualValues(t, buyers-5, rejected.Load())
	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.Equal(t, 5, f.count(t, "orders"))
}

// competingStock takes units from the product inside the order's own
// transaction right before the decrement, as a buyer committing between
// the stock check and the commit would.
type competingStock struct {
	StockStore
	taken int
}

func (c competingStock) DecrementStockTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error {
	if _, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock - ? WHERE id = ?`, c.taken, id); err != nil {
		return err
	}
	return c.StockStore.DecrementStockTx(ctx, tx, id, qty)
}

func TestCreateOrderLosesStockRaceAfterCharge(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Figura Xenomorfo", "60", 3)
	f.svc.products = competingStock{StockStore: f.products, taken: 2}

	_, err := f.svc.CreateOrder(context.Background(), 4, []ItemRequest{{ProductID: p.ID, Quantity: 2}}, "card", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	var oe *OrderError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, KindConflict, oe.Kind)
	assert.Equal(t, p.ID, oe.ProductID)

	assert.EqualValues(t, 1, f.charges.Load())
	assert.Equal(t, 0, f.count(t, "orders"))
	assert.Equal(t, 0, f.count(t, "order_items"))
	assert.Equal(t, 3, f.stock(t, p.ID))
	assert.Empty(t, f.events.completed)

	require.Len(t, f.events.reconcile, 1)
	ev := f.events.reconcile[0]
	assert.Equal(t, uint64(4), ev.UserID)
	assert.Equal(t, "120.00", ev.Amount)
	assert.Equal(t, "tx-120.00", ev.PaymentRef)
	assert.Contains(t, ev.Reason, CodeInsufficientStock)
	assert.Equal(t, 1, f.logs.FilterMessage("order commit failed after successful payment").Len())
}

func TestCreateOrderRaceKeepsStockNonNegative(t *testing.T) {
	f := newFixture(t)
	const initial = 3
	p := f.product(t, "Cartel firmado", "15", initial)
	f.svc.products = competingStock{StockStore: f.products, taken: 1}

	committed := 0
	for i := 0; i < 6; i++ {
		order, err := f.svc.CreateOrder(context.Background(), uint64(i+1), []ItemRequest{{ProductID: p.ID, Quantity: 1}}, "card", nil)
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientStock)
			continue
		}
		committed += order.Items[0].Quantity
	}

	stock := f.stock(t, p.ID)
	assert.GreaterOrEqual(t, stock, 0)
	assert.Equal(t, 1, committed)
	assert.LessOrEqual(t, committed, initial-stock, "units sold never exceed what left the shelf")
	assert.Equal(t, f.count(t, "orders"), len(f.events.completed))
	assert.NotEmpty(t, f.events.reconcile, "the charge that lost the race is reported")
}

func TestCreateOrderCommitFailureIsReconciled(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Vinilo BSO", "40", 3)
	testutil.Exec(t, f.db, `DROP TABLE order_items`)

	_, err := f.svc.CreateOrder(context.Background(), 7, []ItemRequest{{ProductID: p.ID, Quantity: 2}}, "card", nil)
	require.Error(t, err)
	var oe *OrderError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, KindInternal, oe.Kind)

	assert.Equal(t, 3, f.stock(t, p.ID))
	assert.Equal(t, 0, f.count(t, "orders"))
	require.Len(t, f.events.reconcile, 1)
	ev := f.events.reconcile[0]
	assert.Equal(t, uint64(7), ev.UserID)
	assert.Equal(t, "80.00", ev.Amount)
	assert.Equal(t, "tx-80.00", ev.PaymentRef)
	require.Len(t, ev.Items, 1)
	assert.Equal(t, 1, f.logs.FilterMessage("order commit failed after successful payment").Len())
}

func TestCreateOrderSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gorra", "15", 1)
	f.events.fail = true

	order, err := f.svc.CreateOrder(context.Background(), 1, []ItemRequest{{ProductID: p.ID, Quantity: 1}}, "card", nil)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, 1, f.logs.FilterMessage("publish order.completed failed").Len())
}

func TestUnitPriceIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Caja coleccionista", "10", 10)

	order, err := f.svc.CreateOrder(ctx, 1, []ItemRequest{{ProductID: p.ID, Quantity: 3}}, "card", nil)
	require.NoError(t, err)

	_, err = f.products.Update(ctx, p.ID, repository.ProductInput{Name: p.Name, Price: decimal.NewFromInt(20), Stock: 7})
	require.NoError(t, err)

	got, err := f.svc.GetOrderByID(ctx, 1, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "10.00", got.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "30.00", got.TotalAmount.StringFixed(2))
	assert.Equal(t, "20.00", got.Items[0].Product.Price.StringFixed(2))
}

func TestOrderOwnershipAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Llavero", "5", 100)

	var ids []uint64
	for i := 0; i < 3; i++ {
		o, err := f.svc.CreateOrder(ctx, 1, []ItemRequest{{ProductID: p.ID, Quantity: i + 1}}, "card", nil)
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	other, err := f.svc.CreateOrder(ctx, 2, []ItemRequest{{ProductID: p.ID, Quantity: 1}}, "card", nil)
	require.NoError(t, err)

	_, err = f.svc.GetOrderByID(ctx, 1, other.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	_, err = f.svc.GetOrderByID(ctx, 1, 424242)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	page, err := f.svc.ListOrdersForUser(ctx, 1, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Count)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, ids[2], page.Rows[0].ID)
	assert.Equal(t, ids[1], page.Rows[1].ID)
	require.Len(t, page.Rows[0].Items, 1)
	assert.Equal(t, 3, page.Rows[0].Items[0].Quantity)

	page, err = f.svc.ListOrdersForUser(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, ids[0], page.Rows[0].ID)

	page, err = f.svc.ListOrdersForUser(ctx, 3, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Count)
	assert.Empty(t, page.Rows)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cinecriticas/store/internal/model"
)

// OrderRepo persists orders and their lines.  Orders are only written
// inside the transaction opened by the order service.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// CreateTx inserts the order header within tx and fills in its ID.  The
// caller must commit or rollback the transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO orders (user_id, status, total_amount, currency, payment_method, payment_ref, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		o.UserID, o.Status, o.TotalAmount.StringFixed(2), o.Currency, o.PaymentMethod, o.PaymentRef, o.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// CreateItemsBulkTx inserts all order lines in a single statement.
// Passing an empty slice has no effect.
func (r *OrderRepo) CreateItemsBulkTx(ctx context.Context, tx *sql.Tx, orderID uint64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES `
	args := make([]any, 0, len(items)*4)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, orderID, it.ProductID, it.Quantity, it.UnitPrice.StringFixed(2))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

const orderColumns = `o.id, o.user_id, o.status, o.total_amount, o.currency, o.payment_method, o.payment_ref, o.created_at`

func scanOrder(s rowScanner) (*model.Order, error) {
	var (
		o   model.Order
		ref sql.NullString
	)
	if err := s.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.Currency,
		&o.PaymentMethod, &ref, &o.CreatedAt); err != nil {
		return nil, err
	}
	if ref.Valid {
		v := ref.String
		o.PaymentRef = &v
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// GetByIDForUser returns one order with its lines.  Ownership is part of
// the lookup, so another user's order yields ErrOrderNotFound.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, orderID, userID uint64) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.id = ? AND o.user_id = ?", orderID, userID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns one page of the user's orders, newest first, and
// the total number of orders the user has.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]*model.Order, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC LIMIT ? OFFSET ?",
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders := make([]*model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, err
	}
	rows.Close()
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// attachItems loads the lines of every order with a summary of the
// product each line refers to.
func (r *OrderRepo) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Order, len(orders))
	args := make([]any, 0, len(orders))
	for _, o := range orders {
		index[o.ID] = o
		args = append(args, o.ID)
	}
	q := `SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
	             p.name, p.slug, p.kind, p.price, p.image_url
	      FROM order_items oi
	      JOIN products p ON p.id = oi.product_id
	      WHERE oi.order_id IN (` + placeholders(len(args)) + `)
	      ORDER BY oi.order_id, oi.id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it   model.OrderItem
			sum  model.ProductSummary
			kind string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice,
			&sum.Name, &sum.Slug, &kind, &sum.Price, &sum.ImageURL); err != nil {
			return err
		}
		sum.ID = it.ProductID
		sum.Kind = model.ProductKind(kind)
		it.Product = &sum
		if o, ok := index[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

// Package repository defines the data access layer over the MySQL store
// and the sentinel errors reused across repositories.  Handlers and the
// order service use errors.Is against these values to pick a response;
// wrapped driver errors mean an unexpected persistence failure.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate SKU or deleting a product that
// is referenced by order lines.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrProductNotFound is the not-found indicator returned by product
// lookups, updates and deletes.
var ErrProductNotFound = errors.New("product not found")

// ErrOrderNotFound is returned when an order does not exist or is not
// owned by the caller.  The two cases are deliberately indistinguishable.
var ErrOrderNotFound = errors.New("order not found")

// ErrInsufficientStock is returned by the conditional stock decrement
// when the row no longer has enough units.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidQuantity is returned by stock updates given a non-positive
// quantity.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrInvalidProduct wraps product input validation failures.
var ErrInvalidProduct = errors.New("invalid product")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// querier is satisfied by *sql.DB and *sql.Tx so helpers can run inside
// or outside a caller-owned transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicateKey reports whether err is a unique-constraint violation
// from MySQL (1062) or SQLite.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// isForeignKeyViolation reports whether err is a foreign-key violation
// from MySQL (1451/1452) or SQLite.
func isForeignKeyViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1451 || me.Number == 1452
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// placeholders returns "?,?,...,?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOutOfStock        = errors.New("not enough stock for a cart line")
	ErrInvalid           = errors.New("invalid order")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusChanged     = errors.New("order status changed concurrently")
)

// TxFunc runs inside the transaction that writes an order.
type TxFunc func(tx *sql.Tx) error

// Repository defines data access for orders.
type Repository interface {
	// Create inserts the order and its items, then runs fn in the same
	// transaction. Nothing is committed when fn fails.
	Create(ctx context.Context, o *Order, fn TxFunc) error

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	// List returns orders newest first. An empty status means all.
	List(ctx context.Context, status Status, limit, offset int) ([]*Order, error)
	Count(ctx context.Context, status Status) (int, error)

	// Transition moves the order from one status to another and runs fn in
	// the same transaction. ErrStatusChanged is returned when the order is no
	// longer in status from.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, fn TxFunc) error

	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

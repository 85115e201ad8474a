package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrUnavailable     = errors.New("jewel is not available")
	ErrOutOfStock      = errors.New("jewel is out of stock")
	ErrSizeRequired    = errors.New("a size must be chosen")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrNoOwner         = errors.New("cart has no owner")
)

// Repository stores the carts of signed-in customers.
type Repository interface {
	Items(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Replace(ctx context.Context, userID uuid.UUID, items []Item) error
	Clear(ctx context.Context, userID uuid.UUID) error
	// ClearTx empties the cart inside the checkout transaction.
	ClearTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error
}

// GuestStore holds guest carts keyed by session ID. Entries expire.
type GuestStore interface {
	Load(ctx context.Context, sessionID string) ([]Item, error)
	Save(ctx context.Context, sessionID string, items []Item) error
	Delete(ctx context.Context, sessionID string) error
}

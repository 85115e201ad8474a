package inventory

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("jewel or size not found")
	ErrInvalid           = errors.New("invalid stock adjustment")
)

// Repository defines stock storage. The *Tx methods run inside a caller-owned
// transaction so checkout can reserve stock atomically with the order insert.
type Repository interface {
	ReserveTx(ctx context.Context, tx *sql.Tx, lines []Line) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, lines []Line) error
	SetStock(ctx context.Context, req AdjustStockRequest) error
	LowStock(ctx context.Context, threshold int) ([]*LowStockItem, error)
}

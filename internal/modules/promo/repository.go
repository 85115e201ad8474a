package promo

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrPromoNotFound   = errors.New("promo code not found")
	ErrPromoInactive   = errors.New("promo code is not active")
	ErrPromoNotStarted = errors.New("promo code is not valid yet")
	ErrPromoExpired    = errors.New("promo code has expired")
	ErrPromoExhausted  = errors.New("promo code usage limit reached")
	ErrPromoMinimum    = errors.New("order total below the promo code minimum")
	ErrCodeTaken       = errors.New("promo code already exists")
	ErrInvalid         = errors.New("invalid promo code")
)

// Repository defines promo code storage.
type Repository interface {
	Create(ctx context.Context, p *PromoCode) error
	Update(ctx context.Context, p *PromoCode) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*PromoCode, error)
	GetByCode(ctx context.Context, code string) (*PromoCode, error)
	List(ctx context.Context) ([]*PromoCode, error)
	// RedeemTx counts one use inside the checkout transaction. It fails with
	// ErrPromoExhausted when the limit was reached concurrently.
	RedeemTx(ctx context.Context, tx *sql.Tx, id string) error
}

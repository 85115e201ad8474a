package promo

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

// PromoCode is a code customers enter in the cart for an order-level discount.
type PromoCode struct {
	ID             uuid.UUID            `json:"id"`
	Code           string               `json:"code"`
	Type           pricing.DiscountType `json:"type"`
	Value          float64              `json:"value"`
	MinOrderAmount float64              `json:"min_order_amount"`
	UsageLimit     *int                 `json:"usage_limit,omitempty"`
	UsageCount     int                  `json:"usage_count"`
	StartsAt       *time.Time           `json:"starts_at,omitempty"`
	ExpiresAt      *time.Time           `json:"expires_at,omitempty"`
	IsActive       bool                 `json:"is_active"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Check reports why the code cannot be applied to subtotal at now, or nil.
func (p *PromoCode) Check(subtotal float64, now time.Time) error {
	switch {
	case !p.IsActive:
		return ErrPromoInactive
	case p.StartsAt != nil && now.Before(*p.StartsAt):
		return ErrPromoNotStarted
	case p.ExpiresAt != nil && now.After(*p.ExpiresAt):
		return ErrPromoExpired
	case p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit:
		return ErrPromoExhausted
	case subtotal < p.MinOrderAmount:
		return ErrPromoMinimum
	}
	return nil
}

// DiscountFor returns the amount taken off subtotal, never more than subtotal.
func (p *PromoCode) DiscountFor(subtotal float64) float64 {
	if subtotal <= 0 || p.Value <= 0 {
		return 0
	}
	var d float64
	switch p.Type {
	case pricing.DiscountFixed:
		d = p.Value
	default:
		d = subtotal * math.Min(p.Value, 100) / 100
	}
	return pricing.Round2(math.Min(d, subtotal))
}

// IsPercentage reports whether Value is a percentage.
func (p *PromoCode) IsPercentage() bool { return p.Type != pricing.DiscountFixed }

// SavePromoRequest holds the admin form for a promo code.
type SavePromoRequest struct {
	Code           string     `json:"code"`
	Type           string     `json:"type"`
	Value          float64    `json:"value"`
	MinOrderAmount float64    `json:"min_order_amount"`
	UsageLimit     *int       `json:"usage_limit"`
	StartsAt       *time.Time `json:"starts_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	IsActive       bool       `json:"is_active"`
}

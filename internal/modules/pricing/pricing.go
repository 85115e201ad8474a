package pricing

import (
	"math"
	"strings"
	"time"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// ParseDiscountType accepts the admin form spellings and falls back to percentage.
func ParseDiscountType(s string) DiscountType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "amount", "montant":
		return DiscountFixed
	default:
		return DiscountPercentage
	}
}

// Discount is an optional price reduction with an optional validity window.
type Discount struct {
	Type     DiscountType `json:"type"`
	Value    float64      `json:"value"`
	StartsAt *time.Time   `json:"starts_at,omitempty"`
	EndsAt   *time.Time   `json:"ends_at,omitempty"`
}

// ActiveAt reports whether the discount applies at the given instant.
func (d Discount) ActiveAt(now time.Time) bool {
	if d.Value <= 0 {
		return false
	}
	if d.StartsAt != nil && now.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return false
	}
	return true
}

// Price is the result of applying a discount to a base price.
type Price struct {
	Base           float64 `json:"base"`
	Final          float64 `json:"final"`
	Savings        float64 `json:"savings"`
	DiscountActive bool    `json:"discount_active"`
	// Percent is the rounded reduction relative to Base, used for "-20%" labels.
	Percent int `json:"percent,omitempty"`
}

// Compute applies d to base at now. A nil discount leaves the price untouched.
func Compute(base float64, d *Discount, now time.Time) Price {
	if base < 0 {
		base = 0
	}
	base = Round2(base)
	p := Price{Base: base, Final: base}
	if d == nil || !d.ActiveAt(now) {
		return p
	}

	final := base
	switch d.Type {
	case DiscountFixed:
		final = base - d.Value
	default:
		pct := math.Min(d.Value, 100)
		final = base - base*pct/100
	}
	if final < 0 {
		final = 0
	}
	final = Round2(final)

	p.Final = final
	p.Savings = Round2(base - final)
	p.DiscountActive = p.Savings > 0
	if base > 0 && p.DiscountActive {
		p.Percent = int(math.Round(p.Savings / base * 100))
	}
	return p
}

// Shipping describes the flat shipping fee and the subtotal above which it is waived.
type Shipping struct {
	FreeThreshold float64 `yaml:"free_threshold" json:"free_threshold"`
	Fee           float64 `yaml:"fee" json:"fee"`
}

// ShippingFee returns the fee owed for a cart subtotal.
func ShippingFee(subtotal float64, s Shipping) float64 {
	if subtotal <= 0 {
		return 0
	}
	if s.FreeThreshold > 0 && subtotal >= s.FreeThreshold {
		return 0
	}
	return Round2(s.Fee)
}

// RemainingForFreeShipping is what the customer still has to add to qualify.
func RemainingForFreeShipping(subtotal float64, s Shipping) float64 {
	if s.FreeThreshold <= 0 || subtotal >= s.FreeThreshold {
		return 0
	}
	return Round2(s.FreeThreshold - subtotal)
}

// Round2 rounds half away from zero to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

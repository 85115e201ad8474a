package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestCompute(t *testing.T) {
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		base    float64
		d       *Discount
		final   float64
		savings float64
		active  bool
		percent int
	}{
		{name: "no discount", base: 120, final: 120},
		{name: "percentage", base: 120, d: &Discount{Type: DiscountPercentage, Value: 25}, final: 90, savings: 30, active: true, percent: 25},
		{name: "fixed", base: 89.9, d: &Discount{Type: DiscountFixed, Value: 10}, final: 79.9, savings: 10, active: true, percent: 11},
		{name: "fixed above base clamps to zero", base: 15, d: &Discount{Type: DiscountFixed, Value: 40}, final: 0, savings: 15, active: true, percent: 100},
		{name: "percentage above hundred", base: 50, d: &Discount{Type: DiscountPercentage, Value: 150}, final: 0, savings: 50, active: true, percent: 100},
		{name: "zero value is inactive", base: 50, d: &Discount{Type: DiscountPercentage}, final: 50},
		{name: "not started", base: 50, d: &Discount{Type: DiscountPercentage, Value: 10, StartsAt: ptr(now.Add(time.Hour))}, final: 50},
		{name: "ended", base: 50, d: &Discount{Type: DiscountPercentage, Value: 10, EndsAt: ptr(now.Add(-time.Second))}, final: 50},
		{name: "inside window", base: 50, d: &Discount{Type: DiscountPercentage, Value: 10, StartsAt: ptr(now.Add(-time.Hour)), EndsAt: ptr(now.Add(time.Hour))}, final: 45, savings: 5, active: true, percent: 10},
		{name: "rounds to cents", base: 19.99, d: &Discount{Type: DiscountPercentage, Value: 15}, final: 16.99, savings: 3, active: true, percent: 15},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Compute(tc.base, tc.d, now)
			assert.InDelta(t, tc.final, p.Final, 0.001)
			assert.InDelta(t, tc.savings, p.Savings, 0.001)
			assert.Equal(t, tc.active, p.DiscountActive)
			assert.Equal(t, tc.percent, p.Percent)
			assert.LessOrEqual(t, p.Final, p.Base)
			assert.GreaterOrEqual(t, p.Final, 0.0)
		})
	}
}

func TestDiscountWindowBoundsAreInclusive(t *testing.T) {
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	d := Discount{Type: DiscountFixed, Value: 5, StartsAt: &start, EndsAt: &end}

	require.True(t, d.ActiveAt(start))
	require.True(t, d.ActiveAt(end))
	require.False(t, d.ActiveAt(end.Add(time.Nanosecond)))
}

func TestShippingFee(t *testing.T) {
	s := Shipping{FreeThreshold: 60, Fee: 4.9}

	assert.Equal(t, 0.0, ShippingFee(0, s), "empty cart ships free")
	assert.Equal(t, 4.9, ShippingFee(59.99, s))
	assert.Equal(t, 0.0, ShippingFee(60, s))
	assert.Equal(t, 4.9, ShippingFee(500, Shipping{Fee: 4.9}), "no threshold means always charged")
	assert.InDelta(t, 10.01, RemainingForFreeShipping(49.99, s), 0.001)
	assert.Equal(t, 0.0, RemainingForFreeShipping(75, s))
}

func TestParseDiscountType(t *testing.T) {
	assert.Equal(t, DiscountFixed, ParseDiscountType(" Fixed "))
	assert.Equal(t, DiscountFixed, ParseDiscountType("montant"))
	assert.Equal(t, DiscountPercentage, ParseDiscountType("percentage"))
	assert.Equal(t, DiscountPercentage, ParseDiscountType(""))
}

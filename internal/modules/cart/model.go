package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/modules/catalog"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Item is one (jewel, size) pair in a cart.
type Item struct {
	JewelID  uuid.UUID `json:"jewel_id"`
	Size     string    `json:"size"`
	Quantity int       `json:"quantity"`
}

func (i Item) sameLine(o Item) bool { return i.JewelID == o.JewelID && i.Size == o.Size }

// Line is an item resolved against the catalog.
type Line struct {
	Item
	Jewel       *catalog.JewelView `json:"jewel"`
	UnitPrice   float64            `json:"unit_price"`
	LineTotal   float64            `json:"line_total"`
	LineSavings float64            `json:"line_savings"`
	Available   int                `json:"available"`
}

// Short reports whether stock dropped below the quantity in the cart.
func (l *Line) Short() bool { return l.Quantity > l.Available }

// Summary is the priced cart.
type Summary struct {
	Lines                 []*Line `json:"lines"`
	ItemCount             int     `json:"item_count"`
	Subtotal              float64 `json:"subtotal"`
	Savings               float64 `json:"savings"`
	PromoCode             string  `json:"promo_code,omitempty"`
	PromoDiscount         float64 `json:"promo_discount"`
	PromoError            string  `json:"promo_error,omitempty"`
	Shipping              float64 `json:"shipping"`
	FreeShippingRemaining float64 `json:"free_shipping_remaining"`
	Total                 float64 `json:"total"`
	Currency              string  `json:"currency"`

	PromoID  string `json:"-"`
	PromoErr error  `json:"-"`
}

// Empty reports whether the cart has no priced line.
func (s *Summary) Empty() bool { return len(s.Lines) == 0 }

// Owner identifies whose cart is addressed: a signed-in customer or a guest
// session.
type Owner struct {
	UserID    uuid.UUID
	SessionID string
}

func (o Owner) IsGuest() bool { return o.UserID == uuid.Nil }

// OwnerFrom derives the owner from the request context.
func OwnerFrom(ctx context.Context) Owner {
	if p := requestctx.CurrentPrincipal(ctx); p != nil {
		return Owner{UserID: p.UserID}
	}
	return Owner{SessionID: requestctx.CurrentSession(ctx).ID}
}

// Merge adds add to items, incrementing an existing line for the same jewel
// and size. limit caps the resulting quantity when positive.
func Merge(items []Item, add Item, limit int) []Item {
	out := make([]Item, 0, len(items)+1)
	merged := false
	for _, it := range items {
		if !merged && it.sameLine(add) {
			it.Quantity += add.Quantity
			merged = true
		}
		if limit > 0 && it.sameLine(add) && it.Quantity > limit {
			it.Quantity = limit
		}
		out = append(out, it)
	}
	if !merged {
		if limit > 0 && add.Quantity > limit {
			add.Quantity = limit
		}
		out = append(out, add)
	}
	return out
}

// Set replaces the quantity of a line; zero or less removes it.
func Set(items []Item, line Item) []Item {
	out := make([]Item, 0, len(items)+1)
	found := false
	for _, it := range items {
		if it.sameLine(line) {
			found = true
			if line.Quantity > 0 {
				out = append(out, line)
			}
			continue
		}
		out = append(out, it)
	}
	if !found && line.Quantity > 0 {
		out = append(out, line)
	}
	return out
}

func quantityOf(items []Item, line Item) int {
	for _, it := range items {
		if it.sameLine(line) {
			return it.Quantity
		}
	}
	return 0
}

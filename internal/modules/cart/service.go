package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/catalog"
	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
	"github.com/georgemunganga/bijoux-shop/internal/modules/promo"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Catalog resolves jewels for pricing cart lines.
type Catalog interface {
	ViewsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.JewelView, error)
}

// Promos validates promo codes.
type Promos interface {
	Validate(ctx context.Context, code string, subtotal float64) (*promo.PromoCode, error)
}

// Service defines cart business logic for customers and guests.
type Service interface {
	// Add merges qty into the (jewel, size) line and returns the resulting
	// quantity, which is capped by available stock.
	Add(ctx context.Context, owner Owner, jewelID uuid.UUID, size string, qty int) (int, error)
	Update(ctx context.Context, owner Owner, jewelID uuid.UUID, size string, qty int) error
	Remove(ctx context.Context, owner Owner, jewelID uuid.UUID, size string) error
	Clear(ctx context.Context, owner Owner) error
	Summary(ctx context.Context, owner Owner, promoCode string) (*Summary, error)
	Count(ctx context.Context, owner Owner) (int, error)
	// MergeGuest moves a guest cart into a customer's cart after sign-in.
	MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	guests   GuestStore
	catalog  Catalog
	promos   Promos
	shipping pricing.Shipping
	currency string
}

func NewService(repo Repository, guests GuestStore, cat Catalog, promos Promos, shipping pricing.Shipping, currency string) Service {
	return &service{repo: repo, guests: guests, catalog: cat, promos: promos, shipping: shipping, currency: currency}
}

func (s *service) load(ctx context.Context, o Owner) ([]Item, error) {
	if o.IsGuest() {
		if o.SessionID == "" {
			return nil, ErrNoOwner
		}
		return s.guests.Load(ctx, o.SessionID)
	}
	return s.repo.Items(ctx, o.UserID)
}

func (s *service) save(ctx context.Context, o Owner, items []Item) error {
	if o.IsGuest() {
		if o.SessionID == "" {
			return ErrNoOwner
		}
		return s.guests.Save(ctx, o.SessionID, items)
	}
	return s.repo.Replace(ctx, o.UserID, items)
}

// sellable checks the jewel can be bought in size and returns its stock.
func (s *service) sellable(ctx context.Context, jewelID uuid.UUID, size string) (int, error) {
	views, err := s.catalog.ViewsByIDs(ctx, []uuid.UUID{jewelID})
	if err != nil {
		return 0, err
	}
	v, ok := views[jewelID]
	if !ok || !v.IsActive {
		return 0, ErrUnavailable
	}
	if v.HasSizes() && size == "" {
		return 0, ErrSizeRequired
	}
	available := v.Available(size)
	if available <= 0 {
		return 0, ErrOutOfStock
	}
	return available, nil
}

func (s *service) Add(ctx context.Context, o Owner, jewelID uuid.UUID, size string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	available, err := s.sellable(ctx, jewelID, size)
	if err != nil {
		return 0, err
	}
	items, err := s.load(ctx, o)
	if err != nil {
		return 0, err
	}
	line := Item{JewelID: jewelID, Size: size, Quantity: qty}
	items = Merge(items, line, available)
	if err := s.save(ctx, o, items); err != nil {
		return 0, err
	}
	return quantityOf(items, line), nil
}

func (s *service) Update(ctx context.Context, o Owner, jewelID uuid.UUID, size string, qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	items, err := s.load(ctx, o)
	if err != nil {
		return err
	}
	line := Item{JewelID: jewelID, Size: size, Quantity: qty}
	if quantityOf(items, line) == 0 {
		return ErrLineNotFound
	}
	if qty > 0 {
		available, err := s.sellable(ctx, jewelID, size)
		if err != nil {
			return err
		}
		if line.Quantity > available {
			line.Quantity = available
		}
	}
	return s.save(ctx, o, Set(items, line))
}

func (s *service) Remove(ctx context.Context, o Owner, jewelID uuid.UUID, size string) error {
	return s.Update(ctx, o, jewelID, size, 0)
}

func (s *service) Clear(ctx context.Context, o Owner) error {
	if o.IsGuest() {
		if o.SessionID == "" {
			return ErrNoOwner
		}
		return s.guests.Delete(ctx, o.SessionID)
	}
	return s.repo.Clear(ctx, o.UserID)
}

func (s *service) Count(ctx context.Context, o Owner) (int, error) {
	items, err := s.load(ctx, o)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n, nil
}

func (s *service) Summary(ctx context.Context, o Owner, promoCode string) (*Summary, error) {
	items, err := s.load(ctx, o)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, items)
	if err != nil {
		return nil, err
	}
	sum := Price(items, views)
	sum.Currency = s.currency

	if code := promo.NormalizeCode(promoCode); code != "" && !sum.Empty() {
		p, err := s.promos.Validate(ctx, code, sum.Subtotal)
		if err != nil {
			sum.PromoErr = err
			sum.PromoError = promo.Message(err)
		} else {
			sum.PromoCode = p.Code
			sum.PromoID = p.ID.String()
			sum.PromoDiscount = p.DiscountFor(sum.Subtotal)
		}
	}
	sum.applyShipping(s.shipping)
	return sum, nil
}

func (s *service) views(ctx context.Context, items []Item) (map[uuid.UUID]*catalog.JewelView, error) {
	if len(items) == 0 {
		return map[uuid.UUID]*catalog.JewelView{}, nil
	}
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		if !seen[it.JewelID] {
			seen[it.JewelID] = true
			ids = append(ids, it.JewelID)
		}
	}
	return s.catalog.ViewsByIDs(ctx, ids)
}

// Price resolves items against views. Lines whose jewel is gone or inactive
// are left out.
func Price(items []Item, views map[uuid.UUID]*catalog.JewelView) *Summary {
	sum := &Summary{Lines: make([]*Line, 0, len(items))}
	for _, it := range items {
		v, ok := views[it.JewelID]
		if !ok || !v.IsActive {
			continue
		}
		l := &Line{
			Item:        it,
			Jewel:       v,
			UnitPrice:   v.Price.Final,
			LineTotal:   pricing.Round2(v.Price.Final * float64(it.Quantity)),
			LineSavings: pricing.Round2(v.Price.Savings * float64(it.Quantity)),
			Available:   v.Available(it.Size),
		}
		sum.Lines = append(sum.Lines, l)
		sum.ItemCount += it.Quantity
		sum.Subtotal += l.LineTotal
		sum.Savings += l.LineSavings
	}
	sum.Subtotal = pricing.Round2(sum.Subtotal)
	sum.Savings = pricing.Round2(sum.Savings)
	return sum
}

// applyShipping computes shipping on the subtotal net of the promo discount,
// then the total.
func (sum *Summary) applyShipping(ship pricing.Shipping) {
	net := pricing.Round2(sum.Subtotal - sum.PromoDiscount)
	sum.Shipping = pricing.ShippingFee(net, ship)
	sum.FreeShippingRemaining = pricing.RemainingForFreeShipping(net, ship)
	if sum.Empty() {
		sum.FreeShippingRemaining = 0
	}
	sum.Total = pricing.Round2(net + sum.Shipping)
}

func (s *service) MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" || userID == uuid.Nil {
		return nil
	}
	guest, err := s.guests.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load guest cart: %w", err)
	}
	if len(guest) == 0 {
		return nil
	}
	items, err := s.repo.Items(ctx, userID)
	if err != nil {
		return err
	}
	views, err := s.views(ctx, guest)
	if err != nil {
		return err
	}
	for _, it := range guest {
		v, ok := views[it.JewelID]
		if !ok || !v.IsActive {
			continue
		}
		available := v.Available(it.Size)
		if available <= 0 {
			continue
		}
		items = Merge(items, it, available)
	}
	if err := s.repo.Replace(ctx, userID, items); err != nil {
		return fmt.Errorf("save merged cart: %w", err)
	}
	if err := s.guests.Delete(ctx, sessionID); err != nil {
		requestctx.Logger(ctx).Warn("delete merged guest cart", zap.Error(err))
	}
	return nil
}

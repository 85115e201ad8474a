package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/cart"
	"github.com/georgemunganga/bijoux-shop/internal/modules/inventory"
	"github.com/georgemunganga/bijoux-shop/internal/platform/pagination"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Carts prices the customer's cart. cart.Service satisfies it.
type Carts interface {
	Summary(ctx context.Context, owner cart.Owner, promoCode string) (*cart.Summary, error)
}

// Stock takes and returns stock inside the order transaction.
// inventory.Repository satisfies it.
type Stock interface {
	ReserveTx(ctx context.Context, tx *sql.Tx, lines []inventory.Line) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, lines []inventory.Line) error
}

// PromoRedeemer counts a promo code use. promo.Repository satisfies it.
type PromoRedeemer interface {
	RedeemTx(ctx context.Context, tx *sql.Tx, id string) error
}

// CartClearer empties the cart once the order is written. cart.Repository
// satisfies it.
type CartClearer interface {
	ClearTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error
}

// Service defines the order management business logic.
type Service interface {
	// Checkout turns the customer's cart into a PENDING order. Stock is
	// reserved, the promo code redeemed and the cart emptied atomically.
	Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*Order, error)

	// GetOrder retrieves any order by ID or order number.
	GetOrder(ctx context.Context, ref string) (*Order, error)

	// GetCustomerOrder only returns orders owned by userID.
	GetCustomerOrder(ctx context.Context, userID uuid.UUID, ref string) (*Order, error)

	ListCustomerOrders(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// ListOrders pages through all orders, optionally filtered by status.
	ListOrders(ctx context.Context, status string, page int) ([]*Order, pagination.Page, error)

	// UpdateStatus advances an order. Cancelling returns its stock.
	UpdateStatus(ctx context.Context, ref string, req UpdateStatusRequest) (*Order, error)

	// CancelOrder lets a customer cancel their own PENDING order.
	CancelOrder(ctx context.Context, userID uuid.UUID, ref string) (*Order, error)

	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo    Repository
	carts   Carts
	stock   Stock
	promos  PromoRedeemer
	clearer CartClearer
	perPage int
	now     func() time.Time
}

// Option customises the service.
type Option func(*service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// WithPerPage sets the admin listing page size.
func WithPerPage(n int) Option { return func(s *service) { s.perPage = n } }

// NewService creates a new order service.
func NewService(repo Repository, carts Carts, stock Stock, promos PromoRedeemer, clearer CartClearer, opts ...Option) Service {
	s := &service{
		repo: repo, carts: carts, stock: stock, promos: promos, clearer: clearer,
		perPage: 20, now: time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// validTransitions defines the allowed status state machine.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*Order, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer required", ErrInvalid)
	}
	addr, err := normalizeAddress(req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	sum, err := s.carts.Summary(ctx, cart.Owner{UserID: userID}, req.PromoCode)
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}
	if sum.Empty() {
		return nil, ErrEmptyCart
	}
	if sum.PromoErr != nil {
		return nil, sum.PromoErr
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New(),
		UserID:          userID,
		OrderNumber:     generateOrderNumber(now),
		Status:          StatusPending,
		Subtotal:        sum.Subtotal,
		Savings:         sum.Savings,
		PromoCode:       sum.PromoCode,
		PromoDiscount:   sum.PromoDiscount,
		ShippingFee:     sum.Shipping,
		Total:           sum.Total,
		Currency:        sum.Currency,
		ShippingAddress: addr,
	}
	lines := make([]inventory.Line, 0, len(sum.Lines))
	for _, l := range sum.Lines {
		if l.Short() {
			return nil, fmt.Errorf("%w: %s", ErrOutOfStock, l.Jewel.Name)
		}
		o.Items = append(o.Items, &OrderItem{
			ID:        uuid.New(),
			JewelID:   l.JewelID,
			JewelName: l.Jewel.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
		lines = append(lines, inventory.Line{JewelID: l.JewelID, Size: l.Size, Quantity: l.Quantity})
	}

	err = s.repo.Create(ctx, o, func(tx *sql.Tx) error {
		if err := s.stock.ReserveTx(ctx, tx, lines); err != nil {
			if errors.Is(err, inventory.ErrInsufficientStock) {
				return fmt.Errorf("%w: %v", ErrOutOfStock, err)
			}
			return fmt.Errorf("reserve stock: %w", err)
		}
		if sum.PromoID != "" {
			if err := s.promos.RedeemTx(ctx, tx, sum.PromoID); err != nil {
				return err
			}
		}
		return s.clearer.ClearTx(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	requestctx.Logger(ctx).Info("order placed",
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.Float64("total", o.Total),
		zap.Int("items", o.ItemCount()))
	return o, nil
}

func normalizeAddress(a ShippingAddress) (ShippingAddress, error) {
	fields := []*string{&a.FullName, &a.Line1, &a.Line2, &a.PostalCode, &a.City, &a.Country, &a.Phone}
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
	var missing []string
	if a.FullName == "" {
		missing = append(missing, "full_name")
	}
	if a.Line1 == "" {
		missing = append(missing, "line1")
	}
	if a.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if a.City == "" {
		missing = append(missing, "city")
	}
	if a.Country == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return a, fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return a, nil
}

// get accepts either a UUID or an order number.
func (s *service) get(ctx context.Context, ref string) (*Order, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	if ref == "" {
		return nil, ErrNotFound
	}
	return s.repo.GetByNumber(ctx, strings.ToUpper(ref))
}

func (s *service) GetOrder(ctx context.Context, ref string) (*Order, error) {
	return s.get(ctx, ref)
}

func (s *service) GetCustomerOrder(ctx context.Context, userID uuid.UUID, ref string) (*Order, error) {
	o, err := s.get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListOrders(ctx context.Context, status string, page int) ([]*Order, pagination.Page, error) {
	var st Status
	if status != "" {
		var ok bool
		if st, ok = ParseStatus(status); !ok {
			return nil, pagination.Page{}, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
		}
	}
	total, err := s.repo.Count(ctx, st)
	if err != nil {
		return nil, pagination.Page{}, err
	}
	p := pagination.New(page, s.perPage, total)
	if total == 0 {
		return []*Order{}, p, nil
	}
	orders, err := s.repo.List(ctx, st, p.Limit, p.Offset)
	if err != nil {
		return nil, pagination.Page{}, err
	}
	return orders, p, nil
}

func (s *service) UpdateStatus(ctx context.Context, ref string, req UpdateStatusRequest) (*Order, error) {
	o, err := s.get(ctx, ref)
	if err != nil {
		return nil, err
	}
	next, ok := ParseStatus(req.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, req.Status)
	}
	if err := s.transition(ctx, o, next); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) CancelOrder(ctx context.Context, userID uuid.UUID, ref string) (*Order, error) {
	o, err := s.GetCustomerOrder(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: only PENDING orders can be cancelled (current: %s)", ErrInvalidTransition, o.Status)
	}
	if err := s.transition(ctx, o, StatusCancelled); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) transition(ctx context.Context, o *Order, next Status) error {
	if !canTransition(o.Status, next) {
		return fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidTransition, o.Status, next)
	}
	var fn TxFunc
	if next == StatusCancelled {
		lines := make([]inventory.Line, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, inventory.Line{JewelID: it.JewelID, Size: it.Size, Quantity: it.Quantity})
		}
		fn = func(tx *sql.Tx) error { return s.stock.ReleaseTx(ctx, tx, lines) }
	}
	if err := s.repo.Transition(ctx, o.ID, o.Status, next, fn); err != nil {
		return err
	}
	requestctx.Logger(ctx).Info("order status changed",
		zap.String("order_number", o.OrderNumber),
		zap.String("from", string(o.Status)),
		zap.String("to", string(next)))
	o.Status = next
	o.UpdatedAt = s.now()
	return nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.repo.Stats(ctx, midnight)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// generateOrderNumber creates a human-readable order number: ORD-YYYYMMDD-XXXX
func generateOrderNumber(now time.Time) string {
	date := now.UTC().Format("20060102")
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("ORD-%s-%s", date, suffix)
}

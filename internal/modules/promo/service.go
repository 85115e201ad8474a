package promo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

// NormalizeCode upper-cases a code and strips surrounding and inner spaces.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// Service defines promo code business logic.
type Service interface {
	// Validate loads code and checks it against subtotal. The returned code is
	// ready for DiscountFor.
	Validate(ctx context.Context, code string, subtotal float64) (*PromoCode, error)

	ListPromos(ctx context.Context) ([]*PromoCode, error)
	GetPromo(ctx context.Context, id string) (*PromoCode, error)
	CreatePromo(ctx context.Context, req SavePromoRequest) (*PromoCode, error)
	UpdatePromo(ctx context.Context, id string, req SavePromoRequest) (*PromoCode, error)
	ToggleActive(ctx context.Context, id string) (*PromoCode, error)
	DeletePromo(ctx context.Context, id string) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service { return &service{repo: repo, now: time.Now} }

// NewServiceWithClock is NewService with an injected clock.
func NewServiceWithClock(repo Repository, now func() time.Time) Service {
	return &service{repo: repo, now: now}
}

func (s *service) Validate(ctx context.Context, code string, subtotal float64) (*PromoCode, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrPromoNotFound
	}
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := p.Check(subtotal, s.now()); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) ListPromos(ctx context.Context) ([]*PromoCode, error) {
	return s.repo.List(ctx)
}

func (s *service) GetPromo(ctx context.Context, id string) (*PromoCode, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) CreatePromo(ctx context.Context, req SavePromoRequest) (*PromoCode, error) {
	p := &PromoCode{ID: uuid.New()}
	if err := apply(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) UpdatePromo(ctx context.Context, id string, req SavePromoRequest) (*PromoCode, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) ToggleActive(ctx context.Context, id string) (*PromoCode, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.IsActive = !p.IsActive
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) DeletePromo(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func apply(p *PromoCode, req SavePromoRequest) error {
	code := NormalizeCode(req.Code)
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: code must be 3 to 32 letters, digits, - or _", ErrInvalid)
	}
	typ := pricing.ParseDiscountType(req.Type)
	switch {
	case req.Value <= 0:
		return fmt.Errorf("%w: value must be positive", ErrInvalid)
	case typ == pricing.DiscountPercentage && req.Value > 100:
		return fmt.Errorf("%w: percentage above 100", ErrInvalid)
	case req.MinOrderAmount < 0:
		return fmt.Errorf("%w: minimum must not be negative", ErrInvalid)
	case req.UsageLimit != nil && *req.UsageLimit < 0:
		return fmt.Errorf("%w: usage limit must not be negative", ErrInvalid)
	case req.StartsAt != nil && req.ExpiresAt != nil && req.ExpiresAt.Before(*req.StartsAt):
		return fmt.Errorf("%w: expires before it starts", ErrInvalid)
	}
	p.Code = code
	p.Type = typ
	p.Value = pricing.Round2(req.Value)
	p.MinOrderAmount = pricing.Round2(req.MinOrderAmount)
	p.UsageLimit = req.UsageLimit
	p.StartsAt = req.StartsAt
	p.ExpiresAt = req.ExpiresAt
	p.IsActive = req.IsActive
	return nil
}

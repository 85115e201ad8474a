package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
	"github.com/georgemunganga/bijoux-shop/internal/platform/pagination"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
	"github.com/georgemunganga/bijoux-shop/internal/platform/textutil"
)

// Service defines catalog business logic.
type Service interface {
	ListJewels(ctx context.Context, f ListFilter) ([]*JewelView, pagination.Page, error)
	// GetJewel resolves an active jewel by slug or id and counts the view.
	GetJewel(ctx context.Context, slugOrID string) (*JewelView, error)
	GetJewelAdmin(ctx context.Context, id string) (*JewelView, error)
	ViewsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*JewelView, error)

	CreateJewel(ctx context.Context, req SaveJewelRequest) (*Jewel, error)
	UpdateJewel(ctx context.Context, id string, req SaveJewelRequest) (*Jewel, error)
	DeleteJewel(ctx context.Context, id string) error
	SetDiscount(ctx context.Context, id string, d pricing.Discount) error
	ClearDiscount(ctx context.Context, id string) error
	SetMainImage(ctx context.Context, id string, url string) error
	ExportJewels(ctx context.Context, w io.Writer) error
}

// Settings carries the shop-wide knobs the catalog depends on.
type Settings struct {
	Currency string
	PerPage  int
	Badges   pricing.BadgeRules
}

// Option customises the service.
type Option func(*service)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo     Repository
	settings Settings
	policy   *bluemonday.Policy
	now      func() time.Time
}

func NewService(repo Repository, settings Settings, opts ...Option) Service {
	if settings.Currency == "" {
		settings.Currency = "EUR"
	}
	if settings.PerPage <= 0 {
		settings.PerPage = pagination.DefaultPerPage
	}
	s := &service{repo: repo, settings: settings, policy: bluemonday.UGCPolicy(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) view(j *Jewel, now time.Time) *JewelView {
	price := pricing.Compute(j.BasePrice, j.Discount, now)
	badge := pricing.SelectBadge(pricing.BadgeInput{
		Price:     price,
		Stock:     j.TotalStock(),
		Sales:     j.SalesCount,
		Views:     j.ViewCount,
		CreatedAt: j.CreatedAt,
	}, s.settings.Badges, now)
	return &JewelView{Jewel: j, Price: price, Badge: badge}
}

func (s *service) ListJewels(ctx context.Context, f ListFilter) ([]*JewelView, pagination.Page, error) {
	now := s.now()
	if f.PerPage <= 0 {
		f.PerPage = s.settings.PerPage
	}
	f.Sort = ParseSort(string(f.Sort))
	f.CategorySlug = strings.ToLower(strings.TrimSpace(f.CategorySlug))

	total, err := s.repo.Count(ctx, f, now)
	if err != nil {
		return nil, pagination.Page{}, fmt.Errorf("count jewels: %w", err)
	}
	page := pagination.New(f.Page, f.PerPage, total)
	if total == 0 {
		return []*JewelView{}, page, nil
	}
	jewels, err := s.repo.List(ctx, f, now, page.Limit, page.Offset)
	if err != nil {
		return nil, page, fmt.Errorf("list jewels: %w", err)
	}
	views := make([]*JewelView, 0, len(jewels))
	for _, j := range jewels {
		views = append(views, s.view(j, now))
	}
	return views, page, nil
}

func (s *service) GetJewel(ctx context.Context, slugOrID string) (*JewelView, error) {
	var (
		j   *Jewel
		err error
	)
	if _, perr := uuid.Parse(slugOrID); perr == nil {
		j, err = s.repo.GetByID(ctx, slugOrID)
	} else {
		j, err = s.repo.GetBySlug(ctx, strings.ToLower(slugOrID))
	}
	if err != nil {
		return nil, err
	}
	if !j.IsActive {
		return nil, ErrNotFound
	}
	if err := s.repo.IncrementViews(ctx, j.ID); err != nil {
		requestctx.Logger(ctx).Warn("increment jewel views", zap.String("jewel_id", j.ID.String()), zap.Error(err))
	} else {
		j.ViewCount++
	}
	return s.view(j, s.now()), nil
}

func (s *service) GetJewelAdmin(ctx context.Context, id string) (*JewelView, error) {
	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(j, s.now()), nil
}

func (s *service) ViewsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*JewelView, error) {
	jewels, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make(map[uuid.UUID]*JewelView, len(jewels))
	for _, j := range jewels {
		out[j.ID] = s.view(j, now)
	}
	return out, nil
}

func (s *service) CreateJewel(ctx context.Context, req SaveJewelRequest) (*Jewel, error) {
	j := &Jewel{ID: uuid.New(), Currency: s.settings.Currency}
	if err := s.apply(j, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *service) UpdateJewel(ctx context.Context, id string, req SaveJewelRequest) (*Jewel, error) {
	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(j, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *service) apply(j *Jewel, req SaveJewelRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if req.BasePrice < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	if req.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalid)
	}
	slug := textutil.Slugify(req.Slug)
	if slug == "" {
		slug = textutil.Slugify(name)
	}
	if slug == "" {
		return fmt.Errorf("%w: slug is empty", ErrInvalid)
	}

	var categoryID *uuid.UUID
	if c := strings.TrimSpace(req.CategoryID); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			return fmt.Errorf("%w: unknown category", ErrInvalid)
		}
		categoryID = &id
	}

	sizes := make([]SizeStock, 0, len(req.Sizes))
	seen := make(map[string]bool, len(req.Sizes))
	for _, sz := range req.Sizes {
		label := strings.TrimSpace(sz.Size)
		if label == "" {
			continue
		}
		if sz.Stock < 0 {
			return fmt.Errorf("%w: stock for size %s must not be negative", ErrInvalid, label)
		}
		if seen[label] {
			return fmt.Errorf("%w: size %s listed twice", ErrInvalid, label)
		}
		seen[label] = true
		sizes = append(sizes, SizeStock{Size: label, Stock: sz.Stock})
	}

	j.Name = name
	j.Slug = slug
	j.Description = s.policy.Sanitize(strings.TrimSpace(req.Description))
	j.CategoryID = categoryID
	j.Material = strings.TrimSpace(req.Material)
	j.BasePrice = pricing.Round2(req.BasePrice)
	j.Sizes = sizes
	j.Stock = req.Stock
	if len(sizes) > 0 {
		j.Stock = j.TotalStock()
	}
	j.IsActive = req.IsActive
	return nil
}

func (s *service) DeleteJewel(ctx context.Context, id string) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *service) SetDiscount(ctx context.Context, id string, d pricing.Discount) error {
	if d.Value <= 0 {
		return fmt.Errorf("%w: discount value must be positive", ErrInvalid)
	}
	if d.Type == pricing.DiscountPercentage && d.Value > 100 {
		return fmt.Errorf("%w: percentage above 100", ErrInvalid)
	}
	if d.StartsAt != nil && d.EndsAt != nil && d.EndsAt.Before(*d.StartsAt) {
		return fmt.Errorf("%w: discount ends before it starts", ErrInvalid)
	}
	return s.repo.SetDiscount(ctx, id, &d)
}

func (s *service) ClearDiscount(ctx context.Context, id string) error {
	return s.repo.SetDiscount(ctx, id, nil)
}

func (s *service) SetMainImage(ctx context.Context, id string, url string) error {
	return s.repo.SetMainImage(ctx, id, url)
}

func (s *service) ExportJewels(ctx context.Context, w io.Writer) error {
	jewels, err := s.repo.All(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	views := make([]*JewelView, 0, len(jewels))
	for _, j := range jewels {
		views = append(views, s.view(j, now))
	}
	return writeWorkbook(w, views)
}

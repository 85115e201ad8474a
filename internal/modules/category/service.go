package category

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/platform/textutil"
)

// Service defines category business logic.
type Service interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	CreateCategory(ctx context.Context, req SaveCategoryRequest) (*Category, error)
	UpdateCategory(ctx context.Context, id string, req SaveCategoryRequest) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.List(ctx)
}

func (s *service) GetCategory(ctx context.Context, id string) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	return s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

func (s *service) CreateCategory(ctx context.Context, req SaveCategoryRequest) (*Category, error) {
	c := &Category{ID: uuid.New()}
	if err := apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) UpdateCategory(ctx context.Context, id string, req SaveCategoryRequest) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountJewels(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	return s.repo.Delete(ctx, id)
}

func apply(c *Category, req SaveCategoryRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ErrInvalid
	}
	slug := textutil.Slugify(req.Slug)
	if slug == "" {
		slug = textutil.Slugify(name)
	}
	if slug == "" {
		return ErrInvalid
	}
	c.Name = name
	c.Slug = slug
	c.Description = strings.TrimSpace(req.Description)
	c.Position = req.Position
	c.ImageURL = strings.TrimSpace(req.ImageURL)
	return nil
}

package category

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("category not found")
	ErrSlugTaken = errors.New("category slug already in use")
	ErrInUse     = errors.New("category still has jewels")
	ErrInvalid   = errors.New("category name is required")
)

// Repository defines category data storage.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	CountJewels(ctx context.Context, id string) (int, error)
}

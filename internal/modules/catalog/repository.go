package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

var (
	ErrNotFound  = errors.New("jewel not found")
	ErrSlugTaken = errors.New("jewel slug already in use")
	ErrInvalid   = errors.New("invalid jewel")
)

// Repository defines jewel data storage.
type Repository interface {
	Create(ctx context.Context, j *Jewel) error
	Update(ctx context.Context, j *Jewel) error
	GetByID(ctx context.Context, id string) (*Jewel, error)
	GetBySlug(ctx context.Context, slug string) (*Jewel, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Jewel, error)
	// List and Count evaluate discount windows at now so price filters and
	// sorts use the price the customer actually pays.
	List(ctx context.Context, f ListFilter, now time.Time, limit, offset int) ([]*Jewel, error)
	Count(ctx context.Context, f ListFilter, now time.Time) (int, error)
	All(ctx context.Context) ([]*Jewel, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	SetDiscount(ctx context.Context, id string, d *pricing.Discount) error
	SetMainImage(ctx context.Context, id string, url string) error
	Deactivate(ctx context.Context, id string) error
}

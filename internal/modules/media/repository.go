package media

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("image not found")
	ErrInvalid         = errors.New("invalid image upload")
	ErrTooLarge        = errors.New("image is too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// Repository stores image metadata. Blobs live in a Store.
type Repository interface {
	Create(ctx context.Context, img *Image) error
	Get(ctx context.Context, id uuid.UUID) (*Image, error)
	// List returns the owner's images by position. The zero Owner lists
	// free-standing images.
	List(ctx context.Context, owner Owner) ([]*Image, error)
	Recent(ctx context.Context, limit int) ([]*Image, error)
	NextPosition(ctx context.Context, owner Owner) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/catalog"
	"github.com/georgemunganga/bijoux-shop/internal/modules/category"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// DefaultMaxBytes caps an upload at 5 MiB.
const DefaultMaxBytes int64 = 5 << 20

// Jewels reads and updates a jewel's main image. catalog.Service satisfies it.
type Jewels interface {
	GetJewelAdmin(ctx context.Context, id string) (*catalog.JewelView, error)
	SetMainImage(ctx context.Context, id string, url string) error
}

// Categories reads and updates a category's image. category.Service satisfies it.
type Categories interface {
	GetCategory(ctx context.Context, id string) (*category.Category, error)
	UpdateCategory(ctx context.Context, id string, req category.SaveCategoryRequest) (*category.Category, error)
}

// Service defines image management.
type Service interface {
	// Upload stores an image for owner. The first image of a jewel or
	// category becomes its main image.
	Upload(ctx context.Context, owner Owner, filename string, r io.Reader) (*Image, error)
	List(ctx context.Context, owner Owner) ([]*Image, error)
	Recent(ctx context.Context, limit int) ([]*Image, error)
	// SetMain makes the image the main picture of its jewel or category.
	SetMain(ctx context.Context, id string) (*Image, error)
	// Delete removes the blob and the row, and picks another main image
	// when the deleted one was the main image.
	Delete(ctx context.Context, id string) (*Image, error)
	MaxBytes() int64
}

type service struct {
	repo       Repository
	store      Store
	jewels     Jewels
	categories Categories
	maxBytes   int64
}

func NewService(repo Repository, store Store, jewels Jewels, categories Categories, maxBytes int64) Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &service{repo: repo, store: store, jewels: jewels, categories: categories, maxBytes: maxBytes}
}

func (s *service) MaxBytes() int64 { return s.maxBytes }

func (s *service) Upload(ctx context.Context, owner Owner, filename string, r io.Reader) (*Image, error) {
	if !owner.valid() {
		return nil, fmt.Errorf("%w: an image belongs to a jewel or a category, not both", ErrInvalid)
	}
	mainURL, err := s.currentMain(ctx, owner)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalid)
	}
	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	img := &Image{
		ID:          uuid.New(),
		JewelID:     owner.JewelID,
		CategoryID:  owner.CategoryID,
		Filename:    cleanFilename(filename, ext),
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}
	img.ObjectKey = owner.prefix() + "/" + img.ID.String() + ext
	if img.Position, err = s.repo.NextPosition(ctx, owner); err != nil {
		return nil, err
	}
	if img.URL, err = s.store.Put(ctx, img.ObjectKey, contentType, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	if err := s.repo.Create(ctx, img); err != nil {
		if derr := s.store.Delete(ctx, img.ObjectKey); derr != nil {
			requestctx.Logger(ctx).Warn("remove orphaned image blob", zap.String("key", img.ObjectKey), zap.Error(derr))
		}
		return nil, err
	}

	if mainURL == "" && (owner.JewelID != nil || owner.CategoryID != nil) {
		if err := s.setMainURL(ctx, owner, img.URL); err != nil {
			return nil, err
		}
	}
	requestctx.Logger(ctx).Info("image uploaded",
		zap.String("key", img.ObjectKey),
		zap.String("content_type", contentType),
		zap.Int64("bytes", img.SizeBytes))
	return img, nil
}

func cleanFilename(name, ext string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "image" + ext
	}
	if r := []rune(name); len(r) > 120 {
		name = string(r[:120])
	}
	return name
}

// currentMain checks the owner exists and returns its main image URL.
func (s *service) currentMain(ctx context.Context, owner Owner) (string, error) {
	switch {
	case owner.JewelID != nil:
		j, err := s.jewels.GetJewelAdmin(ctx, owner.JewelID.String())
		if errors.Is(err, catalog.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown jewel", ErrInvalid)
		}
		if err != nil {
			return "", err
		}
		return j.MainImageURL, nil
	case owner.CategoryID != nil:
		c, err := s.categories.GetCategory(ctx, owner.CategoryID.String())
		if errors.Is(err, category.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown category", ErrInvalid)
		}
		if err != nil {
			return "", err
		}
		return c.ImageURL, nil
	}
	return "", nil
}

func (s *service) setMainURL(ctx context.Context, owner Owner, url string) error {
	switch {
	case owner.JewelID != nil:
		return s.jewels.SetMainImage(ctx, owner.JewelID.String(), url)
	case owner.CategoryID != nil:
		c, err := s.categories.GetCategory(ctx, owner.CategoryID.String())
		if err != nil {
			return err
		}
		_, err = s.categories.UpdateCategory(ctx, c.ID.String(), category.SaveCategoryRequest{
			Name: c.Name, Slug: c.Slug, Description: c.Description, Position: c.Position, ImageURL: url,
		})
		return err
	}
	return fmt.Errorf("%w: image has no jewel or category", ErrInvalid)
}

func (s *service) get(ctx context.Context, id string) (*Image, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.Get(ctx, uid)
}

func (s *service) List(ctx context.Context, owner Owner) ([]*Image, error) {
	return s.repo.List(ctx, owner)
}

func (s *service) Recent(ctx context.Context, limit int) ([]*Image, error) {
	if limit <= 0 {
		limit = 48
	}
	return s.repo.Recent(ctx, limit)
}

func (s *service) SetMain(ctx context.Context, id string) (*Image, error) {
	img, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.setMainURL(ctx, Owner{JewelID: img.JewelID, CategoryID: img.CategoryID}, img.URL); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *service) Delete(ctx context.Context, id string) (*Image, error) {
	img, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := Owner{JewelID: img.JewelID, CategoryID: img.CategoryID}
	mainURL, err := s.currentMain(ctx, owner)
	if err != nil && !errors.Is(err, ErrInvalid) {
		return nil, err
	}

	if err := s.repo.Delete(ctx, img.ID); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, img.ObjectKey); err != nil {
		requestctx.Logger(ctx).Warn("delete image blob", zap.String("key", img.ObjectKey), zap.Error(err))
	}

	if mainURL == img.URL && (owner.JewelID != nil || owner.CategoryID != nil) {
		next := ""
		rest, err := s.repo.List(ctx, owner)
		if err != nil {
			return nil, err
		}
		if len(rest) > 0 {
			next = rest[0].URL
		}
		if err := s.setMainURL(ctx, owner, next); err != nil {
			return nil, err
		}
	}
	return img, nil
}

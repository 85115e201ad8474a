package inventory

import (
	"context"
	"fmt"
	"strings"
)

// Service defines back-office stock operations.
type Service interface {
	AdjustStock(ctx context.Context, req AdjustStockRequest) error
	LowStock(ctx context.Context, threshold int) ([]*LowStockItem, error)
}

type service struct {
	repo             Repository
	defaultThreshold int
}

// NewService creates the inventory service. defaultThreshold is used when a
// report is requested without one.
func NewService(repo Repository, defaultThreshold int) Service {
	if defaultThreshold <= 0 {
		defaultThreshold = 3
	}
	return &service{repo: repo, defaultThreshold: defaultThreshold}
}

func (s *service) AdjustStock(ctx context.Context, req AdjustStockRequest) error {
	if req.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	}
	req.JewelID = strings.TrimSpace(req.JewelID)
	req.Size = strings.TrimSpace(req.Size)
	return s.repo.SetStock(ctx, req)
}

func (s *service) LowStock(ctx context.Context, threshold int) ([]*LowStockItem, error) {
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}
	return s.repo.LowStock(ctx, threshold)
}

package inventory

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	set       []AdjustStockRequest
	threshold int
	err       error
}

func (f *fakeRepo) ReserveTx(context.Context, *sql.Tx, []Line) error { return nil }
func (f *fakeRepo) ReleaseTx(context.Context, *sql.Tx, []Line) error { return nil }

func (f *fakeRepo) SetStock(_ context.Context, req AdjustStockRequest) error {
	if f.err != nil {
		return f.err
	}
	f.set = append(f.set, req)
	return nil
}

func (f *fakeRepo) LowStock(_ context.Context, threshold int) ([]*LowStockItem, error) {
	f.threshold = threshold
	return []*LowStockItem{{Name: "Bague", Size: "52", Stock: 1}}, nil
}

func TestAdjustStock(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, 3)

	require.ErrorIs(t, svc.AdjustStock(context.Background(), AdjustStockRequest{JewelID: "x", Quantity: -1}), ErrInvalid)
	require.Empty(t, repo.set)

	require.NoError(t, svc.AdjustStock(context.Background(), AdjustStockRequest{JewelID: " abc ", Size: " 52 ", Quantity: 4}))
	require.Equal(t, []AdjustStockRequest{{JewelID: "abc", Size: "52", Quantity: 4}}, repo.set)
}

func TestLowStockDefaultsThreshold(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, 5)

	items, err := svc.LowStock(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 5, repo.threshold)

	_, err = svc.LowStock(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, repo.threshold)
}

func TestAdjustJSONMapsErrors(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(NewService(&fakeRepo{err: ErrNotFound}, 3), nil).RegisterAdminRoutes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/stock", strings.NewReader(`{"jewel_id":"x","quantity":2}`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "not found")
}

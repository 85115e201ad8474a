package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/bijoux-shop/internal/modules/inventory"
	"github.com/georgemunganga/bijoux-shop/internal/modules/order"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

type fakeOrders struct {
	stats *order.Stats
	err   error
}

func (f fakeOrders) Stats(context.Context) (*order.Stats, error) { return f.stats, f.err }

type fakeStock struct{ asked int }

func (f *fakeStock) LowStock(_ context.Context, threshold int) ([]*inventory.LowStockItem, error) {
	f.asked = threshold
	return []*inventory.LowStockItem{{JewelID: uuid.New(), Name: "Bague", Size: "52", Stock: 1}}, nil
}

type fakeSubscribers int

func (f fakeSubscribers) SubscriberCount(context.Context) (int, error) { return int(f), nil }

func newRouter(t *testing.T, orders Orders, stock Stock) chi.Router {
	t.Helper()
	views, err := render.New("Maison Perle")
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(orders, stock, fakeSubscribers(42), 3, views).RegisterAdminRoutes(r)
	return r
}

func sampleStats() *order.Stats {
	return &order.Stats{
		ByStatus:     map[order.Status]int{order.StatusPending: 2, order.StatusPaid: 1},
		Revenue:      310.5,
		OrdersToday:  2,
		RevenueToday: 120,
	}
}

func TestDashboardJSON(t *testing.T) {
	stock := &fakeStock{}
	r := newRouter(t, fakeOrders{stats: sampleStats()}, stock)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, stock.asked)

	var body struct {
		Stats       order.Stats              `json:"stats"`
		LowStock    []inventory.LowStockItem `json:"low_stock"`
		Subscribers int                      `json:"subscribers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Stats.ByStatus[order.StatusPending])
	require.Len(t, body.LowStock, 1)
	require.Equal(t, 42, body.Subscribers)
}

func TestDashboardPageListsEveryStatus(t *testing.T) {
	stock := &fakeStock{}
	r := newRouter(t, fakeOrders{stats: sampleStats()}, stock)

	req := httptest.NewRequest(http.MethodGet, "/?threshold=7", nil)
	req = req.WithContext(requestctx.WithPrincipal(req.Context(), &requestctx.Principal{Role: requestctx.RoleAdmin}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 7, stock.asked)
	for _, s := range order.Statuses {
		require.Contains(t, rec.Body.String(), "/admin/orders?status="+string(s))
	}
	require.Contains(t, rec.Body.String(), "Bague")
}

func TestDashboardFailure(t *testing.T) {
	r := newRouter(t, fakeOrders{err: errors.New("db down")}, &fakeStock{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/inventory"
	"github.com/georgemunganga/bijoux-shop/internal/modules/order"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Orders reports order figures. order.Service satisfies it.
type Orders interface {
	Stats(ctx context.Context) (*order.Stats, error)
}

// Stock lists low stock. inventory.Service satisfies it.
type Stock interface {
	LowStock(ctx context.Context, threshold int) ([]*inventory.LowStockItem, error)
}

// Subscribers counts newsletter subscribers. marketing.Service satisfies it.
type Subscribers interface {
	SubscriberCount(ctx context.Context) (int, error)
}

// Handler serves the back-office home page.
type Handler struct {
	orders      Orders
	stock       Stock
	subscribers Subscribers
	threshold   int
	views       *render.Renderer
}

func NewHandler(orders Orders, stock Stock, subscribers Subscribers, threshold int, views *render.Renderer) *Handler {
	return &Handler{orders: orders, stock: stock, subscribers: subscribers, threshold: threshold, views: views}
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.page)
	r.Get("/api/dashboard", h.statsJSON)
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status order.Status
	Count  int
}

// Page is the data behind the dashboard.
type Page struct {
	Stats       *order.Stats
	Statuses    []StatusCount
	LowStock    []*inventory.LowStockItem
	Threshold   int
	Subscribers int
}

func (h *Handler) load(ctx context.Context, threshold int) (*Page, error) {
	if threshold <= 0 {
		threshold = h.threshold
	}
	stats, err := h.orders.Stats(ctx)
	if err != nil {
		return nil, err
	}
	low, err := h.stock.LowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	subs, err := h.subscribers.SubscriberCount(ctx)
	if err != nil {
		return nil, err
	}
	p := &Page{Stats: stats, LowStock: low, Threshold: threshold, Subscribers: subs}
	for _, s := range order.Statuses {
		p.Statuses = append(p.Statuses, StatusCount{Status: s, Count: stats.ByStatus[s]})
	}
	return p, nil
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	p, err := h.load(r.Context(), threshold)
	if err != nil {
		requestctx.Logger(r.Context()).Error("dashboard", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "admin_dashboard", render.View{Title: "Tableau de bord", Data: p})
}

func (h *Handler) statsJSON(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	p, err := h.load(r.Context(), threshold)
	if err != nil {
		requestctx.Logger(r.Context()).Error("dashboard", zap.Error(err))
		respond(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"stats":       p.Stats,
		"low_stock":   p.LowStock,
		"threshold":   p.Threshold,
		"subscribers": p.Subscribers,
	})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

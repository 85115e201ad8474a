package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
)

// Handler exposes the admin stock screen and its JSON twin.
type Handler struct {
	service Service
	views   *render.Renderer
}

func NewHandler(service Service, views *render.Renderer) *Handler {
	return &Handler{service: service, views: views}
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/stock", h.stockPage)
	r.Post("/stock", h.adjustForm)
	r.Get("/api/stock/low", h.lowStockJSON)
	r.Patch("/api/stock", h.adjustJSON)
}

// StockPage is the data behind the admin stock screen.
type StockPage struct {
	Threshold int
	Items     []*LowStockItem
}

func (h *Handler) stockPage(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	items, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "admin_stock", render.View{
		Title: "Stock",
		Data:  StockPage{Threshold: threshold, Items: items},
	})
}

func (h *Handler) adjustForm(w http.ResponseWriter, r *http.Request) {
	qty, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil {
		http.Redirect(w, r, "/admin/stock?msg="+url.QueryEscape("Quantité invalide"), http.StatusSeeOther)
		return
	}
	req := AdjustStockRequest{JewelID: r.PostFormValue("jewel_id"), Size: r.PostFormValue("size"), Quantity: qty}
	msg := "Stock mis à jour"
	if err := h.service.AdjustStock(r.Context(), req); err != nil {
		msg = "Stock non modifié : " + err.Error()
	}
	http.Redirect(w, r, "/admin/stock?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (h *Handler) lowStockJSON(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	items, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) adjustJSON(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.AdjustStock(r.Context(), req); err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "stock updated"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

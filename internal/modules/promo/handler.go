package promo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
)

// Handler exposes the admin promo code screens and a JSON validation endpoint.
type Handler struct {
	service Service
	views   *render.Renderer
}

func NewHandler(service Service, views *render.Renderer) *Handler {
	return &Handler{service: service, views: views}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/promos/{code}", h.validateJSON)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/promos", func(r chi.Router) {
		r.Get("/", h.adminList)
		r.Post("/", h.adminCreate)
		r.Post("/{id}", h.adminUpdate)
		r.Post("/{id}/toggle", h.adminToggle)
		r.Post("/{id}/delete", h.adminDelete)
	})
}

// Message turns a validation error into the sentence shown in the cart.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrPromoNotFound):
		return "Ce code promo n'existe pas."
	case errors.Is(err, ErrPromoInactive):
		return "Ce code promo n'est plus actif."
	case errors.Is(err, ErrPromoNotStarted):
		return "Ce code promo n'est pas encore valable."
	case errors.Is(err, ErrPromoExpired):
		return "Ce code promo a expiré."
	case errors.Is(err, ErrPromoExhausted):
		return "Ce code promo a atteint sa limite d'utilisation."
	case errors.Is(err, ErrPromoMinimum):
		return "Le montant minimum de commande n'est pas atteint pour ce code."
	default:
		return "Code promo invalide."
	}
}

func (h *Handler) validateJSON(w http.ResponseWriter, r *http.Request) {
	subtotal, _ := strconv.ParseFloat(strings.ReplaceAll(r.URL.Query().Get("subtotal"), ",", "."), 64)
	p, err := h.service.Validate(r.Context(), chi.URLParam(r, "code"), subtotal)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": Message(err)})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"code":     p.Code,
		"discount": p.DiscountFor(subtotal),
	})
}

// AdminPage is the data behind the promo code screen.
type AdminPage struct {
	Promos []*PromoCode
	Form   SavePromoRequest
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, http.StatusOK, "", SavePromoRequest{IsActive: true, Type: "percentage"})
}

func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, errMsg string, form SavePromoRequest) {
	promos, err := h.service.ListPromos(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.views.HTML(w, r, status, "admin_promos", render.View{
		Title: "Codes promo",
		Error: errMsg,
		Data:  AdminPage{Promos: promos, Form: form},
	})
}

func (h *Handler) adminCreate(w http.ResponseWriter, r *http.Request) {
	req, err := formRequest(r)
	if err == nil {
		if _, err = h.service.CreatePromo(r.Context(), req); err == nil {
			http.Redirect(w, r, "/admin/promos?msg="+url.QueryEscape("Code promo créé"), http.StatusSeeOther)
			return
		}
	}
	h.renderAdmin(w, r, statusFor(err), err.Error(), req)
}

func (h *Handler) adminUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := formRequest(r)
	if err == nil {
		if _, err = h.service.UpdatePromo(r.Context(), chi.URLParam(r, "id"), req); err == nil {
			http.Redirect(w, r, "/admin/promos?msg="+url.QueryEscape("Code promo mis à jour"), http.StatusSeeOther)
			return
		}
	}
	h.renderAdmin(w, r, statusFor(err), err.Error(), req)
}

func (h *Handler) adminToggle(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.ToggleActive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	msg := "Code " + p.Code + " désactivé"
	if p.IsActive {
		msg = "Code " + p.Code + " activé"
	}
	http.Redirect(w, r, "/admin/promos?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePromo(r.Context(), chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/admin/promos?msg="+url.QueryEscape("Code promo supprimé"), http.StatusSeeOther)
}

func formRequest(r *http.Request) (SavePromoRequest, error) {
	req := SavePromoRequest{
		Code:     r.PostFormValue("code"),
		Type:     r.PostFormValue("type"),
		IsActive: r.PostFormValue("is_active") != "",
	}
	var err error
	if req.Value, err = parseAmount(r.PostFormValue("value")); err != nil {
		return req, fmt.Errorf("%w: value", ErrInvalid)
	}
	if req.MinOrderAmount, err = parseAmount(r.PostFormValue("min_order_amount")); err != nil {
		return req, fmt.Errorf("%w: minimum", ErrInvalid)
	}
	if s := strings.TrimSpace(r.PostFormValue("usage_limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, fmt.Errorf("%w: usage limit", ErrInvalid)
		}
		req.UsageLimit = &n
	}
	if req.StartsAt, err = parseLocalTime(r.PostFormValue("starts_at")); err != nil {
		return req, fmt.Errorf("%w: start date", ErrInvalid)
	}
	if req.ExpiresAt, err = parseLocalTime(r.PostFormValue("expires_at")); err != nil {
		return req, fmt.Errorf("%w: expiry date", ErrInvalid)
	}
	return req, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseLocalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrPromoNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrCodeTaken):
		return http.StatusConflict
	case errors.Is(err, ErrPromoInactive), errors.Is(err, ErrPromoNotStarted), errors.Is(err, ErrPromoExpired),
		errors.Is(err, ErrPromoExhausted), errors.Is(err, ErrPromoMinimum):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

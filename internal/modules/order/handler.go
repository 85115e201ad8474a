package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/auth"
	"github.com/georgemunganga/bijoux-shop/internal/modules/cart"
	"github.com/georgemunganga/bijoux-shop/internal/modules/promo"
	"github.com/georgemunganga/bijoux-shop/internal/platform/pagination"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Handler exposes checkout, customer order pages and the admin order screens.
type Handler struct {
	service Service
	carts   Carts
	views   *render.Renderer
}

func NewHandler(service Service, carts Carts, views *render.Renderer) *Handler {
	return &Handler{service: service, carts: carts, views: views}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Get("/commande", h.checkoutPage)
		r.Post("/commande", h.checkoutForm)
		r.Get("/mes-commandes", h.ordersPage)
		r.Get("/commandes/{ref}", h.detailPage)
		r.Post("/commandes/{ref}/annuler", h.cancelForm)

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Post("/", h.checkoutJSON)               // POST /api/v1/orders
			r.Get("/", h.listMineJSON)                // GET  /api/v1/orders
			r.Get("/{ref}", h.getMineJSON)            // GET  /api/v1/orders/{id|number}
			r.Post("/{ref}/cancel", h.cancelMineJSON) // POST /api/v1/orders/{id|number}/cancel
		})
	})
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.adminList)
		r.Get("/{ref}", h.adminDetail)
		r.Post("/{ref}/status", h.adminStatusForm)
	})
	r.Patch("/api/orders/{ref}/status", h.adminStatusJSON)
}

// Message turns an order error into the sentence shown to shoppers.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "Votre panier est vide."
	case errors.Is(err, ErrOutOfStock):
		return "Un bijou de votre panier n'est plus disponible en quantité suffisante."
	case errors.Is(err, ErrInvalid):
		return "Merci de compléter votre adresse de livraison."
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrStatusChanged):
		return "Cette commande ne peut plus être modifiée."
	case errors.Is(err, ErrNotFound):
		return "Commande introuvable."
	case isPromoError(err):
		return promo.Message(err)
	default:
		return "Une erreur est survenue, merci de réessayer."
	}
}

func isPromoError(err error) bool {
	for _, e := range []error{promo.ErrPromoNotFound, promo.ErrPromoInactive, promo.ErrPromoNotStarted,
		promo.ErrPromoExpired, promo.ErrPromoExhausted, promo.ErrPromoMinimum} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// ── storefront pages ─────────────────────────────────────────────────────────

// CheckoutPage is the data behind the checkout form.
type CheckoutPage struct {
	Summary *cart.Summary
	Address ShippingAddress
}

func (h *Handler) checkoutPage(w http.ResponseWriter, r *http.Request) {
	h.renderCheckout(w, r, http.StatusOK, "", ShippingAddress{})
}

func (h *Handler) renderCheckout(w http.ResponseWriter, r *http.Request, status int, errMsg string, addr ShippingAddress) {
	sum, err := h.carts.Summary(r.Context(), cart.OwnerFrom(r.Context()), cart.PromoFromRequest(r))
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if sum.Empty() {
		http.Redirect(w, r, "/panier?msg="+url.QueryEscape(Message(ErrEmptyCart)), http.StatusSeeOther)
		return
	}
	if addr.Country == "" {
		addr.Country = "France"
	}
	h.views.HTML(w, r, status, "checkout", render.View{
		Title: "Commande",
		Error: errMsg,
		Data:  CheckoutPage{Summary: sum, Address: addr},
	})
}

func addressForm(r *http.Request) ShippingAddress {
	return ShippingAddress{
		FullName:   r.PostFormValue("full_name"),
		Line1:      r.PostFormValue("line1"),
		Line2:      r.PostFormValue("line2"),
		PostalCode: r.PostFormValue("postal_code"),
		City:       r.PostFormValue("city"),
		Country:    r.PostFormValue("country"),
		Phone:      r.PostFormValue("phone"),
	}
}

func (h *Handler) checkoutForm(w http.ResponseWriter, r *http.Request) {
	p := requestctx.CurrentPrincipal(r.Context())
	addr := addressForm(r)
	o, err := h.service.Checkout(r.Context(), p.UserID, CheckoutRequest{
		PromoCode:       cart.PromoFromRequest(r),
		ShippingAddress: addr,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrOutOfStock):
		http.Redirect(w, r, "/panier?msg="+url.QueryEscape(Message(err)), http.StatusSeeOther)
		return
	case isPromoError(err):
		cart.ForgetPromo(w)
		http.Redirect(w, r, "/panier?msg="+url.QueryEscape(Message(err)), http.StatusSeeOther)
		return
	case errors.Is(err, ErrInvalid):
		h.renderCheckout(w, r, http.StatusUnprocessableEntity, Message(err), addr)
		return
	default:
		h.serverError(w, r, err)
		return
	}
	cart.ForgetPromo(w)
	msg := "Merci ! Votre commande " + o.OrderNumber + " est enregistrée."
	http.Redirect(w, r, "/commandes/"+o.OrderNumber+"?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

// DetailPage is the data behind an order page.
type DetailPage struct {
	Order *Order
	Admin bool
}

func (h *Handler) ordersPage(w http.ResponseWriter, r *http.Request) {
	p := requestctx.CurrentPrincipal(r.Context())
	orders, err := h.service.ListCustomerOrders(r.Context(), p.UserID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "orders", render.View{Title: "Mes commandes", Data: orders})
}

func (h *Handler) detailPage(w http.ResponseWriter, r *http.Request) {
	p := requestctx.CurrentPrincipal(r.Context())
	o, err := h.service.GetCustomerOrder(r.Context(), p.UserID, chi.URLParam(r, "ref"))
	if errors.Is(err, ErrNotFound) {
		h.views.HTML(w, r, http.StatusNotFound, "not_found", render.View{Title: "Commande introuvable"})
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "order_detail", render.View{
		Title: "Commande " + o.OrderNumber,
		Data:  DetailPage{Order: o},
	})
}

func (h *Handler) cancelForm(w http.ResponseWriter, r *http.Request) {
	p := requestctx.CurrentPrincipal(r.Context())
	ref := chi.URLParam(r, "ref")
	o, err := h.service.CancelOrder(r.Context(), p.UserID, ref)
	msg := "Votre commande a été annulée."
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.serverError(w, r, err)
			return
		}
		msg = Message(err)
	} else {
		ref = o.OrderNumber
	}
	http.Redirect(w, r, "/commandes/"+url.PathEscape(ref)+"?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

// ── customer JSON ────────────────────────────────────────────────────────────

func (h *Handler) checkoutJSON(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p := requestctx.CurrentPrincipal(r.Context())
	o, err := h.service.Checkout(r.Context(), p.UserID, req)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, o)
}

func (h *Handler) listMineJSON(w http.ResponseWriter, r *http.Request) {
	p := requestctx.CurrentPrincipal(r.Context())
	orders, err := h.service.ListCustomerOrders(r.Context(), p.UserID)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) getMineJSON(w http.ResponseWriter, r *http.Request) {
	p := requestctx.CurrentPrincipal(r.Context())
	o, err := h.service.GetCustomerOrder(r.Context(), p.UserID, chi.URLParam(r, "ref"))
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) cancelMineJSON(w http.ResponseWriter, r *http.Request) {
	p := requestctx.CurrentPrincipal(r.Context())
	o, err := h.service.CancelOrder(r.Context(), p.UserID, chi.URLParam(r, "ref"))
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	respond(w, http.StatusOK, o)
}

// ── admin ────────────────────────────────────────────────────────────────────

// AdminListPage is the data behind the admin order list.
type AdminListPage struct {
	Orders   []*Order
	Page     pagination.Page
	Status   string
	Statuses []Status
	Query    url.Values
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	orders, pg, err := h.service.ListOrders(r.Context(), status, page)
	if errors.Is(err, ErrInvalid) {
		http.Redirect(w, r, "/admin/orders", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "admin_orders", render.View{
		Title: "Commandes",
		Data:  AdminListPage{Orders: orders, Page: pg, Status: status, Statuses: Statuses, Query: r.URL.Query()},
	})
}

func (h *Handler) adminDetail(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "ref"))
	if errors.Is(err, ErrNotFound) {
		h.views.HTML(w, r, http.StatusNotFound, "not_found", render.View{Title: "Commande introuvable"})
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "order_detail", render.View{
		Title: "Commande " + o.OrderNumber,
		Data:  DetailPage{Order: o, Admin: true},
	})
}

func (h *Handler) adminStatusForm(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	o, err := h.service.UpdateStatus(r.Context(), ref, UpdateStatusRequest{Status: r.PostFormValue("status")})
	msg := "Statut mis à jour."
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.serverError(w, r, err)
			return
		}
		msg = Message(err)
	} else {
		msg = "Commande " + o.OrderNumber + " : " + o.Status.Label() + "."
	}
	http.Redirect(w, r, "/admin/orders/"+url.PathEscape(ref)+"?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (h *Handler) adminStatusJSON(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "ref"), req)
	if err != nil {
		h.jsonError(w, r, err)
		return
	}
	respond(w, http.StatusOK, o)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (h *Handler) jsonError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		requestctx.Logger(r.Context()).Error("order handler", zap.Error(err))
		respond(w, status, map[string]string{"error": "internal error"})
		return
	}
	respond(w, status, map[string]string{"error": err.Error(), "message": Message(err)})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("order handler", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidTransition), isPromoError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrOutOfStock), errors.Is(err, ErrStatusChanged):
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

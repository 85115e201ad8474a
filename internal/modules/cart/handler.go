package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/promo"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// PromoCookie remembers the promo code entered in the cart until checkout.
const PromoCookie = "bijoux_promo"

// PromoFromRequest returns the promo code remembered for this browser.
func PromoFromRequest(r *http.Request) string {
	c, err := r.Cookie(PromoCookie)
	if err != nil {
		return ""
	}
	return promo.NormalizeCode(c.Value)
}

// ForgetPromo clears the remembered promo code.
func ForgetPromo(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: PromoCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

func rememberPromo(w http.ResponseWriter, code string) {
	http.SetCookie(w, &http.Cookie{
		Name: PromoCookie, Value: code, Path: "/", MaxAge: 7 * 24 * 3600,
		HttpOnly: true, SameSite: http.SameSiteLaxMode,
	})
}

// Handler exposes the cart page, its form actions and the cart JSON API.
type Handler struct {
	service Service
	views   *render.Renderer
}

func NewHandler(service Service, views *render.Renderer) *Handler {
	return &Handler{service: service, views: views}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/panier", func(r chi.Router) {
		r.Get("/", h.page)
		r.Post("/ajouter", h.addForm)
		r.Post("/modifier", h.updateForm)
		r.Post("/retirer", h.removeForm)
		r.Post("/vider", h.clearForm)
		r.Post("/promo", h.promoForm)
		r.Post("/promo/retirer", h.promoRemoveForm)
	})
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.getJSON)
		r.Delete("/", h.clearJSON)
		r.Post("/items", h.addJSON)
		r.Patch("/items", h.updateJSON)
		r.Delete("/items", h.removeJSON)
	})
}

// Message turns a cart error into the sentence shown to shoppers.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantité invalide."
	case errors.Is(err, ErrUnavailable):
		return "Ce bijou n'est plus disponible."
	case errors.Is(err, ErrOutOfStock):
		return "Ce bijou est en rupture de stock."
	case errors.Is(err, ErrSizeRequired):
		return "Veuillez choisir une taille."
	case errors.Is(err, ErrLineNotFound):
		return "Cet article n'est pas dans votre panier."
	default:
		return "Une erreur est survenue."
	}
}

// Page is the data behind the cart page.
type Page struct {
	Summary    *Summary
	PromoInput string
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	code := PromoFromRequest(r)
	sum, err := h.service.Summary(r.Context(), OwnerFrom(r.Context()), code)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "cart", render.View{
		Title: "Mon panier",
		Error: sum.PromoError,
		Data:  Page{Summary: sum, PromoInput: code},
	})
}

func lineForm(r *http.Request) (uuid.UUID, string, int, error) {
	id, err := uuid.Parse(r.PostFormValue("jewel_id"))
	if err != nil {
		return uuid.Nil, "", 0, ErrUnavailable
	}
	qty := 1
	if s := strings.TrimSpace(r.PostFormValue("quantity")); s != "" {
		if qty, err = strconv.Atoi(s); err != nil {
			return uuid.Nil, "", 0, ErrInvalidQuantity
		}
	}
	return id, strings.TrimSpace(r.PostFormValue("size")), qty, nil
}

func redirectCart(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/panier?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (h *Handler) addForm(w http.ResponseWriter, r *http.Request) {
	id, size, qty, err := lineForm(r)
	if err == nil {
		var got int
		if got, err = h.service.Add(r.Context(), OwnerFrom(r.Context()), id, size, qty); err == nil {
			msg := "Bijou ajouté au panier."
			if got < qty {
				msg = "Quantité limitée au stock disponible."
			}
			redirectCart(w, r, msg)
			return
		}
	}
	back := r.Referer()
	if back == "" {
		back = "/panier"
	}
	u, perr := url.Parse(back)
	if perr != nil || (u.IsAbs() && u.Host != r.Host) {
		u = &url.URL{Path: "/panier"}
	}
	q := u.Query()
	q.Set("msg", Message(err))
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.RequestURI(), http.StatusSeeOther)
}

func (h *Handler) updateForm(w http.ResponseWriter, r *http.Request) {
	id, size, qty, err := lineForm(r)
	if err == nil {
		err = h.service.Update(r.Context(), OwnerFrom(r.Context()), id, size, qty)
	}
	if err != nil {
		redirectCart(w, r, Message(err))
		return
	}
	redirectCart(w, r, "Panier mis à jour.")
}

func (h *Handler) removeForm(w http.ResponseWriter, r *http.Request) {
	id, size, _, err := lineForm(r)
	if err == nil {
		err = h.service.Remove(r.Context(), OwnerFrom(r.Context()), id, size)
	}
	if err != nil {
		redirectCart(w, r, Message(err))
		return
	}
	redirectCart(w, r, "Article retiré.")
}

func (h *Handler) clearForm(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), OwnerFrom(r.Context())); err != nil {
		h.serverError(w, r, err)
		return
	}
	ForgetPromo(w)
	redirectCart(w, r, "Panier vidé.")
}

func (h *Handler) promoForm(w http.ResponseWriter, r *http.Request) {
	code := promo.NormalizeCode(r.PostFormValue("code"))
	if code == "" {
		ForgetPromo(w)
		redirectCart(w, r, "Code promo retiré.")
		return
	}
	sum, err := h.service.Summary(r.Context(), OwnerFrom(r.Context()), code)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if sum.PromoErr != nil {
		ForgetPromo(w)
		redirectCart(w, r, sum.PromoError)
		return
	}
	rememberPromo(w, code)
	redirectCart(w, r, "Code promo appliqué.")
}

func (h *Handler) promoRemoveForm(w http.ResponseWriter, r *http.Request) {
	ForgetPromo(w)
	redirectCart(w, r, "Code promo retiré.")
}

// ---- JSON ----

type lineRequest struct {
	JewelID  uuid.UUID `json:"jewel_id"`
	Size     string    `json:"size"`
	Quantity int       `json:"quantity"`
}

func (h *Handler) getJSON(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("promo")
	if code == "" {
		code = PromoFromRequest(r)
	}
	sum, err := h.service.Summary(r.Context(), OwnerFrom(r.Context()), code)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sum)
}

func (h *Handler) addJSON(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	qty, err := h.service.Add(r.Context(), OwnerFrom(r.Context()), req.JewelID, req.Size, req.Quantity)
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": Message(err)})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"jewel_id": req.JewelID,
		"size":     req.Size,
		"quantity": qty,
		"capped":   qty < req.Quantity,
	})
}

func (h *Handler) updateJSON(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.Update(r.Context(), OwnerFrom(r.Context()), req.JewelID, req.Size, req.Quantity); err != nil {
		respond(w, statusFor(err), map[string]string{"error": Message(err)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeJSON(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("jewel_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "jewel_id is required"})
		return
	}
	if err := h.service.Remove(r.Context(), OwnerFrom(r.Context()), id, r.URL.Query().Get("size")); err != nil {
		respond(w, statusFor(err), map[string]string{"error": Message(err)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearJSON(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), OwnerFrom(r.Context())); err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("cart handler", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrSizeRequired), errors.Is(err, ErrNoOwner):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOutOfStock):
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

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/user"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// GuestMerger moves a guest cart into a customer's cart.
type GuestMerger interface {
	MergeGuest(ctx context.Context, sessionID string, userID uuid.UUID) error
}

// SessionRotator issues a fresh browser session after sign-in.
type SessionRotator interface {
	Rotate(w http.ResponseWriter, r *http.Request) *requestctx.Session
}

// Handler serves the sign-in, sign-up and sign-out forms and the token API.
type Handler struct {
	service  Service
	carts    GuestMerger
	sessions SessionRotator
	views    *render.Renderer
	ttl      time.Duration
	secure   bool
}

func NewHandler(service Service, carts GuestMerger, sessions SessionRotator, views *render.Renderer, ttl time.Duration, secure bool) *Handler {
	return &Handler{service: service, carts: carts, sessions: sessions, views: views, ttl: ttl, secure: secure}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/connexion", h.loginPage)
	r.Post("/connexion", h.loginForm)
	r.Get("/inscription", h.registerPage)
	r.Post("/inscription", h.registerForm)
	r.Post("/deconnexion", h.logout)
	r.Post("/api/v1/auth/login", h.loginJSON)
	r.Post("/api/v1/auth/register", h.registerJSON)
	r.Post("/api/v1/auth/logout", h.logoutJSON)
}

// FormPage is the data behind the login and register pages.
type FormPage struct {
	Email     string
	FirstName string
	LastName  string
	Next      string
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, r, http.StatusOK, "login", render.View{
		Title: "Connexion",
		Data:  FormPage{Next: SafeNext(r.URL.Query().Get("next"))},
	})
}

func (h *Handler) registerPage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, r, http.StatusOK, "register", render.View{
		Title: "Créer un compte",
		Data:  FormPage{Next: SafeNext(r.URL.Query().Get("next"))},
	})
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	next := SafeNext(r.PostFormValue("next"))
	token, u, err := h.service.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Une erreur est survenue."
		if errors.Is(err, user.ErrInvalidCredentials) {
			status, msg = http.StatusUnauthorized, "E-mail ou mot de passe incorrect."
		} else {
			requestctx.Logger(r.Context()).Error("login", zap.Error(err))
		}
		h.views.HTML(w, r, status, "login", render.View{
			Title: "Connexion",
			Error: msg,
			Data:  FormPage{Email: email, Next: next},
		})
		return
	}
	h.signIn(w, r, token, u)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) {
	req := user.RegisterRequest{
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
	}
	next := SafeNext(r.PostFormValue("next"))
	if r.PostFormValue("password_confirm") != req.Password {
		h.registerError(w, r, http.StatusBadRequest, "Les mots de passe ne correspondent pas.", req, next)
		return
	}
	token, u, err := h.service.Register(r.Context(), req)
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		h.registerError(w, r, http.StatusConflict, "Un compte existe déjà pour cette adresse.", req, next)
		return
	case errors.Is(err, user.ErrInvalid):
		h.registerError(w, r, http.StatusBadRequest, "Adresse e-mail invalide ou mot de passe trop court (8 caractères minimum).", req, next)
		return
	case err != nil:
		requestctx.Logger(r.Context()).Error("register", zap.Error(err))
		h.registerError(w, r, http.StatusInternalServerError, "Une erreur est survenue.", req, next)
		return
	}
	h.signIn(w, r, token, u)
	http.Redirect(w, r, withMessage(next, "Bienvenue "+u.DisplayName()+" !"), http.StatusSeeOther)
}

func (h *Handler) registerError(w http.ResponseWriter, r *http.Request, status int, msg string, req user.RegisterRequest, next string) {
	h.views.HTML(w, r, status, "register", render.View{
		Title: "Créer un compte",
		Error: msg,
		Data:  FormPage{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName, Next: next},
	})
}

// signIn sets the auth cookie, merges the guest cart and rotates the session.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, token string, u *user.User) {
	ctx := r.Context()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.ttl.Seconds()),
	})
	if h.carts != nil {
		if sid := requestctx.CurrentSession(ctx).ID; sid != "" {
			if err := h.carts.MergeGuest(ctx, sid, u.ID); err != nil {
				requestctx.Logger(ctx).Warn("merge guest cart", zap.String("user_id", u.ID.String()), zap.Error(err))
			}
		}
	}
	if h.sessions != nil {
		h.sessions.Rotate(w, r)
	}
	requestctx.Logger(ctx).Info("user signed in", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
}

func (h *Handler) clearAuth(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.secure})
	if h.sessions != nil {
		h.sessions.Rotate(w, r)
	}
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuth(w, r)
	http.Redirect(w, r, "/?msg="+url.QueryEscape("À bientôt !"), http.StatusSeeOther)
}

// logoutJSON drops the auth cookie. Bearer tokens stay valid until they expire.
func (h *Handler) logoutJSON(w http.ResponseWriter, r *http.Request) {
	h.clearAuth(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) registerJSON(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	token, u, err := h.service.Register(r.Context(), req)
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, user.ErrInvalid):
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		requestctx.Logger(r.Context()).Error("register", zap.Error(err))
		respond(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	respond(w, http.StatusCreated, map[string]interface{}{"token": token, "user": u})
}

func (h *Handler) loginJSON(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	token, u, err := h.service.Login(r.Context(), body.Email, body.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		respond(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"token": token, "user": u})
}

func withMessage(target, msg string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "/"
	}
	q := u.Query()
	q.Set("msg", msg)
	u.RawQuery = q.Encode()
	return u.String()
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

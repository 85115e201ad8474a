package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// TokenParser verifies tokens. Service satisfies it.
type TokenParser interface {
	Parse(token string) (*requestctx.Principal, error)
}

// Authenticate attaches the principal when the request carries a valid token
// (cookie or bearer header). Anonymous requests pass through.
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				if c, err := r.Cookie(CookieName); err == nil {
					token = c.Value
				}
			}
			if token != "" {
				if p, err := parser.Parse(token); err == nil {
					r = r.WithContext(requestctx.WithPrincipal(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireUser rejects anonymous requests: API calls get 401, pages are
// redirected to the login form.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestctx.CurrentPrincipal(r.Context()) == nil {
			deny(w, r, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin only lets admins through.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := requestctx.CurrentPrincipal(r.Context())
		if p == nil {
			deny(w, r, http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin() {
			deny(w, r, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, r *http.Request, status int) {
	if status == http.StatusUnauthorized && wantsHTML(r) {
		http.Redirect(w, r, "/connexion?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	http.Error(w, http.StatusText(status), status)
}

func wantsHTML(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.Contains(r.URL.Path, "/api/") {
		return false
	}
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// SafeNext keeps post-login redirects on this site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

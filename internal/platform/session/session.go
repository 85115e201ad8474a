package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

const (
	CookieName    = "bijoux_session"
	CSRFFormField = "csrf_token"
	CSRFHeader    = "X-CSRF-Token"
	cookieMaxAge  = 30 * 24 * time.Hour
)

// Manager issues and verifies the signed session cookie.
type Manager struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewManager builds a manager. Empty keys fall back to a random per-process key,
// which invalidates every session on restart.
func NewManager(hashKey, blockKey string, secure bool) *Manager {
	hk := []byte(hashKey)
	if len(hk) == 0 {
		hk = securecookie.GenerateRandomKey(32)
	}
	var bk []byte
	if blockKey != "" {
		bk = []byte(blockKey)
	}
	codec := securecookie.New(hk, bk)
	codec.MaxAge(int(cookieMaxAge.Seconds()))
	return &Manager{codec: codec, secure: secure}
}

// Middleware loads the session from the cookie, creating one for new visitors.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := m.read(r)
		if !ok {
			s = &requestctx.Session{ID: randomHex(16), CSRFToken: randomHex(16)}
			if err := m.write(w, s); err != nil {
				requestctx.Logger(r.Context()).Error("write session cookie", zap.Error(err))
			}
		}
		next.ServeHTTP(w, r.WithContext(requestctx.WithSession(r.Context(), s)))
	})
}

// Rotate issues a fresh session identifier and CSRF token. Used after login.
func (m *Manager) Rotate(w http.ResponseWriter, r *http.Request) *requestctx.Session {
	s := &requestctx.Session{ID: randomHex(16), CSRFToken: randomHex(16)}
	if err := m.write(w, s); err != nil {
		requestctx.Logger(r.Context()).Error("rotate session cookie", zap.Error(err))
	}
	return s
}

func (m *Manager) read(r *http.Request) (*requestctx.Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	var s requestctx.Session
	if err := m.codec.Decode(CookieName, c.Value, &s); err != nil || s.ID == "" {
		return nil, false
	}
	return &s, true
}

func (m *Manager) write(w http.ResponseWriter, s *requestctx.Session) error {
	encoded, err := m.codec.Encode(CookieName, s)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookieMaxAge.Seconds()),
	})
	return nil
}

// maxFormBody caps form bodies read for the token, except multipart uploads
// from signed-in users.
const maxFormBody = 1 << 20

// CSRF rejects unsafe requests whose form field or header does not carry the
// session's token. Must run after Middleware and after authentication.
// Requests with an Authorization header or a JSON body cannot be forged by a
// cross-site form and are exempt. When the token has to come from the form,
// the body is capped first: multipart bodies of signed-in users at
// maxMultipart, everything else at 1 MiB. Larger bodies get 413.
func CSRF(maxMultipart int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || r.Header.Get("Authorization") != "" || isJSON(r) {
				next.ServeHTTP(w, r)
				return
			}
			expected := requestctx.CurrentSession(r.Context()).CSRFToken
			got := r.Header.Get(CSRFHeader)
			if got == "" {
				var err error
				got, err = formToken(w, r, maxMultipart)
				var tooBig *http.MaxBytesError
				if errors.As(err, &tooBig) {
					http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
					return
				}
			}
			if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				http.Error(w, "invalid CSRF token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// formToken parses the capped body and returns its csrf_token field.
func formToken(w http.ResponseWriter, r *http.Request, maxMultipart int64) (string, error) {
	limit := int64(maxFormBody)
	multipart := isMultipart(r)
	if multipart && requestctx.CurrentPrincipal(r.Context()) != nil && maxMultipart > limit {
		limit = maxMultipart
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	var err error
	if multipart {
		err = r.ParseMultipartForm(maxFormBody)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return "", err
	}
	return r.PostForm.Get(CSRFFormField), nil
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

func isJSON(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

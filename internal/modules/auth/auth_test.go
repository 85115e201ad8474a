package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/bijoux-shop/internal/modules/user"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubUsers struct {
	user *user.User
}

func (s *stubUsers) RegisterUser(_ context.Context, req user.RegisterRequest) (*user.User, error) {
	if req.Email == s.user.Email {
		return nil, user.ErrEmailTaken
	}
	return &user.User{ID: uuid.New(), Email: req.Email, Role: requestctx.RoleCustomer}, nil
}

func (s *stubUsers) GetUser(context.Context, string) (*user.User, error) { return s.user, nil }

func (s *stubUsers) Authenticate(_ context.Context, email, password string) (*user.User, error) {
	if email != s.user.Email || password != "motdepasse" {
		return nil, user.ErrInvalidCredentials
	}
	return s.user, nil
}

func (s *stubUsers) EnsureAdmin(context.Context, string, string) (*user.User, error) {
	return s.user, nil
}

type recordingMerger struct {
	session string
	userID  uuid.UUID
}

func (m *recordingMerger) MergeGuest(_ context.Context, sessionID string, userID uuid.UUID) error {
	m.session, m.userID = sessionID, userID
	return nil
}

type countingRotator struct{ n int }

func (c *countingRotator) Rotate(http.ResponseWriter, *http.Request) *requestctx.Session {
	c.n++
	return &requestctx.Session{ID: "rotated"}
}

func adminUser() *user.User {
	return &user.User{ID: uuid.New(), Email: "admin@bijoux.fr", Role: requestctx.RoleAdmin}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	u := adminUser()
	svc := NewService(&stubUsers{user: u}, testSecret, time.Hour)

	token, got, err := svc.Login(context.Background(), u.Email, "motdepasse")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	p, err := svc.Parse(token)
	require.NoError(t, err)
	require.Equal(t, u.ID, p.UserID)
	require.Equal(t, u.Email, p.Email)
	require.True(t, p.IsAdmin())

	_, _, err = svc.Login(context.Background(), u.Email, "faux")
	require.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestParseRejectsBadTokens(t *testing.T) {
	u := adminUser()
	svc := NewService(&stubUsers{user: u}, testSecret, time.Hour)
	other := NewService(&stubUsers{user: u}, "another-secret-another-secret!!", time.Hour)

	token, _, err := other.Login(context.Background(), u.Email, "motdepasse")
	require.NoError(t, err)
	_, err = svc.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Parse("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := NewService(&stubUsers{user: u}, testSecret, time.Hour).(*service)
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, _, err := expired.Login(context.Background(), u.Email, "motdepasse")
	require.NoError(t, err)
	_, err = svc.Parse(old)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	u := adminUser()
	svc := NewService(&stubUsers{user: u}, testSecret, time.Hour)
	token, _, err := svc.Login(context.Background(), u.Email, "motdepasse")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(Authenticate(svc))
	r.With(RequireUser).Get("/compte", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.With(RequireUser).Get("/api/v1/me", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.With(RequireAdmin).Get("/admin", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/compte?tab=1", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/connexion?next="+url.QueryEscape("/compte?tab=1"), rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	customer := &user.User{ID: uuid.New(), Email: "c@b.fr", Role: requestctx.RoleCustomer}
	ctoken, _, err := NewService(&stubUsers{user: customer}, testSecret, time.Hour).Login(context.Background(), customer.Email, "motdepasse")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+ctoken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginFormMergesGuestCart(t *testing.T) {
	u := adminUser()
	svc := NewService(&stubUsers{user: u}, testSecret, time.Hour)
	merger := &recordingMerger{}
	rotator := &countingRotator{}
	h := NewHandler(svc, merger, rotator, nil, time.Hour, false)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	form := url.Values{"email": {u.Email}, "password": {"motdepasse"}, "next": {"/panier"}}
	req := httptest.NewRequest(http.MethodPost, "/connexion", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(requestctx.WithSession(req.Context(), &requestctx.Session{ID: "guest-42"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/panier", rec.Header().Get("Location"))
	require.Equal(t, "guest-42", merger.session)
	require.Equal(t, u.ID, merger.userID)
	require.Equal(t, 1, rotator.n)

	var authCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			authCookie = c
		}
	}
	require.NotNil(t, authCookie)
	require.True(t, authCookie.HttpOnly)
}

func TestSafeNext(t *testing.T) {
	require.Equal(t, "/", SafeNext(""))
	require.Equal(t, "/", SafeNext("https://evil.example"))
	require.Equal(t, "/", SafeNext("//evil.example"))
	require.Equal(t, "/panier", SafeNext("/panier"))
}

func TestJSONRegisterAndLogout(t *testing.T) {
	svc := NewService(&stubUsers{user: adminUser()}, testSecret, time.Hour)
	r := chi.NewRouter()
	NewHandler(svc, nil, nil, nil, time.Hour, false).RegisterRoutes(r)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post("/api/v1/auth/register", `{"email":"jeanne@example.com","password":"motdepasse"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	p, err := svc.Parse(body.Token)
	require.NoError(t, err)
	require.Equal(t, "jeanne@example.com", p.Email)

	rec = post("/api/v1/auth/register", `{"email":"admin@bijoux.fr","password":"motdepasse"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = post("/api/v1/auth/register", `{"email":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("/api/v1/auth/logout", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, CookieName, cookies[0].Name)
	require.Negative(t, cookies[0].MaxAge)
}

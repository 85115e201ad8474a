package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

type memRepo struct{ users map[string]*User }

func newMemRepo() *memRepo { return &memRepo{users: map[string]*User{}} }

func (m *memRepo) CreateUser(_ context.Context, u *User) error {
	for _, o := range m.users {
		if o.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.users[u.ID.String()] = u
	return nil
}

func (m *memRepo) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) GetUserByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) SetRole(_ context.Context, id string, role string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = requestctx.Role(role)
	return nil
}

func (m *memRepo) SetPassword(_ context.Context, id string, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func newTestService(repo Repository) Service {
	return &service{repo: repo, cost: bcrypt.MinCost}
}

func TestRegisterUser(t *testing.T) {
	svc := newTestService(newMemRepo())

	u, err := svc.RegisterUser(context.Background(), RegisterRequest{
		Email: "  Claire@Example.FR ", Password: "motdepasse", FirstName: " Claire ",
	})
	require.NoError(t, err)
	require.Equal(t, "claire@example.fr", u.Email)
	require.Equal(t, "Claire", u.FirstName)
	require.Equal(t, requestctx.RoleCustomer, u.Role)
	require.NotEqual(t, "motdepasse", u.PasswordHash)

	_, err = svc.RegisterUser(context.Background(), RegisterRequest{Email: "claire@example.fr", Password: "autrepasse"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterUserValidation(t *testing.T) {
	svc := newTestService(newMemRepo())
	_, err := svc.RegisterUser(context.Background(), RegisterRequest{Email: "pas-un-email", Password: "motdepasse"})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = svc.RegisterUser(context.Background(), RegisterRequest{Email: "a@b.fr", Password: "court"})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(newMemRepo())
	_, err := svc.RegisterUser(context.Background(), RegisterRequest{Email: "a@b.fr", Password: "motdepasse"})
	require.NoError(t, err)

	u, err := svc.Authenticate(context.Background(), "A@B.fr", "motdepasse")
	require.NoError(t, err)
	require.Equal(t, "a@b.fr", u.Email)

	_, err = svc.Authenticate(context.Background(), "a@b.fr", "mauvais")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "x@b.fr", "motdepasse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	admin, err := svc.EnsureAdmin(context.Background(), "admin@bijoux.fr", "secretadmin")
	require.NoError(t, err)
	require.Equal(t, requestctx.RoleAdmin, admin.Role)

	again, err := svc.EnsureAdmin(context.Background(), "admin@bijoux.fr", "nouveausecret")
	require.NoError(t, err)
	require.Equal(t, admin.ID, again.ID)

	_, err = svc.Authenticate(context.Background(), "admin@bijoux.fr", "nouveausecret")
	require.NoError(t, err)

	customer, err := svc.RegisterUser(context.Background(), RegisterRequest{Email: "c@b.fr", Password: "motdepasse"})
	require.NoError(t, err)
	promoted, err := svc.EnsureAdmin(context.Background(), "c@b.fr", "motdepasse")
	require.NoError(t, err)
	require.Equal(t, customer.ID, promoted.ID)
	require.Equal(t, requestctx.RoleAdmin, repo.users[customer.ID.String()].Role)
}

func TestMeRequiresPrincipal(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	u, err := svc.RegisterUser(context.Background(), RegisterRequest{Email: "a@b.fr", Password: "motdepasse"})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(requestctx.WithPrincipal(req.Context(), &requestctx.Principal{UserID: u.ID}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"email":"a@b.fr"`)
	require.NotContains(t, rec.Body.String(), "password")
}

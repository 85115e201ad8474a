package promo

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

var now = time.Date(2024, 11, 29, 10, 0, 0, 0, time.UTC)

type memRepo struct{ codes map[string]*PromoCode }

func newMemRepo(codes ...*PromoCode) *memRepo {
	m := &memRepo{codes: map[string]*PromoCode{}}
	for _, c := range codes {
		m.codes[c.ID.String()] = c
	}
	return m
}

func (m *memRepo) Create(_ context.Context, p *PromoCode) error {
	for _, c := range m.codes {
		if c.Code == p.Code {
			return ErrCodeTaken
		}
	}
	m.codes[p.ID.String()] = p
	return nil
}

func (m *memRepo) Update(_ context.Context, p *PromoCode) error {
	if _, ok := m.codes[p.ID.String()]; !ok {
		return ErrPromoNotFound
	}
	m.codes[p.ID.String()] = p
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.codes[id]; !ok {
		return ErrPromoNotFound
	}
	delete(m.codes, id)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*PromoCode, error) {
	c, ok := m.codes[id]
	if !ok {
		return nil, ErrPromoNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) GetByCode(_ context.Context, code string) (*PromoCode, error) {
	for _, c := range m.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrPromoNotFound
}

func (m *memRepo) List(_ context.Context) ([]*PromoCode, error) {
	var out []*PromoCode
	for _, c := range m.codes {
		out = append(out, c)
	}
	return out, nil
}

func (m *memRepo) RedeemTx(context.Context, *sql.Tx, string) error { return nil }

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func TestCheck(t *testing.T) {
	base := PromoCode{Code: "NOEL10", Type: pricing.DiscountPercentage, Value: 10, IsActive: true, MinOrderAmount: 50}

	tests := []struct {
		name     string
		mutate   func(p *PromoCode)
		subtotal float64
		want     error
	}{
		{"valid", func(*PromoCode) {}, 80, nil},
		{"inactive", func(p *PromoCode) { p.IsActive = false }, 80, ErrPromoInactive},
		{"not started", func(p *PromoCode) { p.StartsAt = timePtr(now.Add(time.Hour)) }, 80, ErrPromoNotStarted},
		{"expired", func(p *PromoCode) { p.ExpiresAt = timePtr(now.Add(-time.Second)) }, 80, ErrPromoExpired},
		{"expiry instant still valid", func(p *PromoCode) { p.ExpiresAt = timePtr(now) }, 80, nil},
		{"exhausted", func(p *PromoCode) { p.UsageLimit, p.UsageCount = intPtr(5), 5 }, 80, ErrPromoExhausted},
		{"below minimum", func(*PromoCode) {}, 49.99, ErrPromoMinimum},
		{"at minimum", func(*PromoCode) {}, 50, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			err := p.Check(tt.subtotal, now)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDiscountFor(t *testing.T) {
	pct := &PromoCode{Type: pricing.DiscountPercentage, Value: 15}
	require.Equal(t, 13.5, pct.DiscountFor(90))
	require.Equal(t, 0.0, pct.DiscountFor(0))

	fixed := &PromoCode{Type: pricing.DiscountFixed, Value: 20}
	require.Equal(t, 20.0, fixed.DiscountFor(90))
	require.Equal(t, 12.5, fixed.DiscountFor(12.5))

	capped := &PromoCode{Type: pricing.DiscountPercentage, Value: 150}
	require.Equal(t, 40.0, capped.DiscountFor(40))
}

func TestValidateNormalizesCode(t *testing.T) {
	svc := NewServiceWithClock(newMemRepo(), func() time.Time { return now })
	created, err := svc.CreatePromo(context.Background(), SavePromoRequest{
		Code: " bien venue ", Type: "fixed", Value: 5, IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, "BIENVENUE", created.Code)

	p, err := svc.Validate(context.Background(), "bienvenue", 30)
	require.NoError(t, err)
	require.Equal(t, 5.0, p.DiscountFor(30))

	_, err = svc.Validate(context.Background(), "   ", 30)
	require.ErrorIs(t, err, ErrPromoNotFound)
	_, err = svc.Validate(context.Background(), "INCONNU", 30)
	require.ErrorIs(t, err, ErrPromoNotFound)
}

func TestCreatePromoValidation(t *testing.T) {
	svc := NewService(newMemRepo())
	cases := []SavePromoRequest{
		{Code: "AB", Value: 5},
		{Code: "CODE!", Value: 5},
		{Code: "ZERO", Value: 0},
		{Code: "TROP", Type: "percentage", Value: 101},
		{Code: "NEGMIN", Value: 5, MinOrderAmount: -1},
		{Code: "LIMIT", Value: 5, UsageLimit: intPtr(-1)},
		{Code: "DATES", Value: 5, StartsAt: timePtr(now), ExpiresAt: timePtr(now.Add(-time.Hour))},
	}
	for _, req := range cases {
		_, err := svc.CreatePromo(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalid, req.Code)
	}

	_, err := svc.CreatePromo(context.Background(), SavePromoRequest{Code: "SOLDES", Value: 10})
	require.NoError(t, err)
	_, err = svc.CreatePromo(context.Background(), SavePromoRequest{Code: "soldes", Value: 20})
	require.ErrorIs(t, err, ErrCodeTaken)
}

func TestToggleActive(t *testing.T) {
	svc := NewService(newMemRepo())
	p, err := svc.CreatePromo(context.Background(), SavePromoRequest{Code: "ETE", Value: 10, IsActive: true})
	require.NoError(t, err)

	toggled, err := svc.ToggleActive(context.Background(), p.ID.String())
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	_, err = svc.ToggleActive(context.Background(), "missing")
	require.ErrorIs(t, err, ErrPromoNotFound)
}

func TestValidateJSON(t *testing.T) {
	svc := NewServiceWithClock(newMemRepo(), func() time.Time { return now })
	_, err := svc.CreatePromo(context.Background(), SavePromoRequest{Code: "DIX", Value: 10, MinOrderAmount: 20, IsActive: true})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/promos/dix?subtotal=50", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"code":"DIX","discount":5}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/promos/dix?subtotal=10", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "minimum")
}

package category

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
)

type memRepo struct {
	byID   map[string]*Category
	jewels map[string]int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*Category{}, jewels: map[string]int{}}
}

func (m *memRepo) Create(_ context.Context, c *Category) error {
	for _, other := range m.byID {
		if other.Slug == c.Slug {
			return ErrSlugTaken
		}
	}
	cp := *c
	m.byID[c.ID.String()] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, c *Category) error {
	if _, ok := m.byID[c.ID.String()]; !ok {
		return ErrNotFound
	}
	for id, other := range m.byID {
		if id != c.ID.String() && other.Slug == c.Slug {
			return ErrSlugTaken
		}
	}
	cp := *c
	m.byID[c.ID.String()] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Category, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) GetBySlug(_ context.Context, slug string) (*Category, error) {
	for _, c := range m.byID {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) List(_ context.Context) ([]*Category, error) {
	out := make([]*Category, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memRepo) CountJewels(_ context.Context, id string) (int, error) {
	return m.jewels[id], nil
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	svc := NewService(newMemRepo())

	c, err := svc.CreateCategory(context.Background(), SaveCategoryRequest{Name: "  Boucles d'oreilles "})
	require.NoError(t, err)
	require.Equal(t, "Boucles d'oreilles", c.Name)
	require.Equal(t, "boucles-d-oreilles", c.Slug)

	got, err := svc.GetBySlug(context.Background(), " Boucles-D-Oreilles")
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
}

func TestCreateCategoryRejectsBlankName(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.CreateCategory(context.Background(), SaveCategoryRequest{Name: "   "})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestCreateCategoryDuplicateSlug(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.CreateCategory(context.Background(), SaveCategoryRequest{Name: "Bagues"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(context.Background(), SaveCategoryRequest{Name: "Autres", Slug: "bagues"})
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestUpdateCategory(t *testing.T) {
	svc := NewService(newMemRepo())
	c, err := svc.CreateCategory(context.Background(), SaveCategoryRequest{Name: "Colliers"})
	require.NoError(t, err)

	updated, err := svc.UpdateCategory(context.Background(), c.ID.String(), SaveCategoryRequest{
		Name: "Colliers & pendentifs", Position: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "colliers-pendentifs", updated.Slug)
	require.Equal(t, 3, updated.Position)

	_, err = svc.UpdateCategory(context.Background(), "missing", SaveCategoryRequest{Name: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategoryRefusedWhileReferenced(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	c, err := svc.CreateCategory(context.Background(), SaveCategoryRequest{Name: "Bracelets"})
	require.NoError(t, err)

	repo.jewels[c.ID.String()] = 2
	require.ErrorIs(t, svc.DeleteCategory(context.Background(), c.ID.String()), ErrInUse)

	repo.jewels[c.ID.String()] = 0
	require.NoError(t, svc.DeleteCategory(context.Background(), c.ID.String()))
	require.ErrorIs(t, svc.DeleteCategory(context.Background(), c.ID.String()), ErrNotFound)
}

func TestListJSON(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.CreateCategory(context.Background(), SaveCategoryRequest{Name: "Bagues", Position: 1})
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body []Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "bagues", body[0].Slug)
}

func TestAdminFormRejectsMalformedPosition(t *testing.T) {
	repo := newMemRepo()
	views, err := render.New("Maison Perle")
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(NewService(repo), views).RegisterAdminRoutes(r)

	post := func(position string) *httptest.ResponseRecorder {
		form := url.Values{"name": {"Colliers"}, "position": {position}}
		req := httptest.NewRequest(http.MethodPost, "/categories/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post("deux")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Position invalide")
	require.Empty(t, repo.byID)

	rec = post("")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, repo.byID, 1)
}

package media

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/bijoux-shop/internal/modules/catalog"
	"github.com/georgemunganga/bijoux-shop/internal/modules/category"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type memRepo struct{ images map[uuid.UUID]*Image }

func newMemRepo() *memRepo { return &memRepo{images: map[uuid.UUID]*Image{}} }

func sameOwner(img *Image, o Owner) bool {
	eq := func(a, b *uuid.UUID) bool { return (a == nil && b == nil) || (a != nil && b != nil && *a == *b) }
	return eq(img.JewelID, o.JewelID) && eq(img.CategoryID, o.CategoryID)
}

func (m *memRepo) Create(_ context.Context, img *Image) error {
	m.images[img.ID] = img
	return nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (*Image, error) {
	img, ok := m.images[id]
	if !ok {
		return nil, ErrNotFound
	}
	return img, nil
}

func (m *memRepo) List(_ context.Context, o Owner) ([]*Image, error) {
	var out []*Image
	for _, img := range m.images {
		if sameOwner(img, o) {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memRepo) Recent(_ context.Context, limit int) ([]*Image, error) {
	var out []*Image
	for _, img := range m.images {
		out = append(out, img)
	}
	return out, nil
}

func (m *memRepo) NextPosition(ctx context.Context, o Owner) (int, error) {
	imgs, _ := m.List(ctx, o)
	if len(imgs) == 0 {
		return 0, nil
	}
	return imgs[len(imgs)-1].Position + 1, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.images[id]; !ok {
		return ErrNotFound
	}
	delete(m.images, id)
	return nil
}

type memStore struct{ blobs map[string][]byte }

func (s *memStore) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.blobs[key] = b
	return "/uploads/" + key, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.blobs, key)
	return nil
}

type fakeJewels struct{ jewels map[string]*catalog.Jewel }

func (f *fakeJewels) GetJewelAdmin(_ context.Context, id string) (*catalog.JewelView, error) {
	j, ok := f.jewels[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &catalog.JewelView{Jewel: j}, nil
}

func (f *fakeJewels) SetMainImage(_ context.Context, id string, url string) error {
	f.jewels[id].MainImageURL = url
	return nil
}

type fakeCategories struct{ cats map[string]*category.Category }

func (f *fakeCategories) GetCategory(_ context.Context, id string) (*category.Category, error) {
	c, ok := f.cats[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategories) UpdateCategory(_ context.Context, id string, req category.SaveCategoryRequest) (*category.Category, error) {
	c := f.cats[id]
	c.ImageURL = req.ImageURL
	return c, nil
}

type fixture struct {
	svc    Service
	repo   *memRepo
	store  *memStore
	jewels *fakeJewels
	cats   *fakeCategories
	jewel  uuid.UUID
	cat    uuid.UUID
}

func newFixture(maxBytes int64) *fixture {
	f := &fixture{
		repo:  newMemRepo(),
		store: &memStore{blobs: map[string][]byte{}},
		jewel: uuid.New(),
		cat:   uuid.New(),
	}
	f.jewels = &fakeJewels{jewels: map[string]*catalog.Jewel{f.jewel.String(): {ID: f.jewel, Name: "Bague"}}}
	f.cats = &fakeCategories{cats: map[string]*category.Category{f.cat.String(): {ID: f.cat, Name: "Bagues", Slug: "bagues"}}}
	f.svc = NewService(f.repo, f.store, f.jewels, f.cats, maxBytes)
	return f
}

func TestUploadFirstImageBecomesMain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0)
	owner := Owner{JewelID: &f.jewel}

	first, err := f.svc.Upload(ctx, owner, `C:\photos\bague.png`, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, "image/png", first.ContentType)
	require.Equal(t, "bague.png", first.Filename)
	require.Equal(t, "jewels/"+f.jewel.String()+"/"+first.ID.String()+".png", first.ObjectKey)
	require.Equal(t, pngHeader, f.store.blobs[first.ObjectKey])
	require.Equal(t, first.URL, f.jewels.jewels[f.jewel.String()].MainImageURL)

	second, err := f.svc.Upload(ctx, owner, "profil.gif", strings.NewReader("GIF89a\x01\x00\x01\x00"))
	require.NoError(t, err)
	require.Equal(t, 1, second.Position)
	require.Equal(t, first.URL, f.jewels.jewels[f.jewel.String()].MainImageURL)

	_, err = f.svc.SetMain(ctx, second.ID.String())
	require.NoError(t, err)
	require.Equal(t, second.URL, f.jewels.jewels[f.jewel.String()].MainImageURL)
}

func TestUploadRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(64)

	_, err := f.svc.Upload(ctx, Owner{JewelID: &f.jewel}, "notes.txt", strings.NewReader("just some text"))
	require.ErrorIs(t, err, ErrUnsupportedType)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	_, err = f.svc.Upload(ctx, Owner{JewelID: &f.jewel}, "big.png", bytes.NewReader(big))
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = f.svc.Upload(ctx, Owner{JewelID: &f.jewel}, "empty.png", bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrInvalid)

	unknown := uuid.New()
	_, err = f.svc.Upload(ctx, Owner{JewelID: &unknown}, "a.png", bytes.NewReader(pngHeader))
	require.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.Upload(ctx, Owner{JewelID: &f.jewel, CategoryID: &f.cat}, "a.png", bytes.NewReader(pngHeader))
	require.ErrorIs(t, err, ErrInvalid)

	require.Empty(t, f.store.blobs)
	require.Empty(t, f.repo.images)
}

func TestDeleteMainImagePromotesNext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0)
	owner := Owner{CategoryID: &f.cat}

	first, err := f.svc.Upload(ctx, owner, "a.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, owner, "b.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, first.URL, f.cats.cats[f.cat.String()].ImageURL)

	_, err = f.svc.Delete(ctx, first.ID.String())
	require.NoError(t, err)
	require.NotContains(t, f.store.blobs, first.ObjectKey)
	require.Equal(t, second.URL, f.cats.cats[f.cat.String()].ImageURL)

	_, err = f.svc.Delete(ctx, second.ID.String())
	require.NoError(t, err)
	require.Empty(t, f.cats.cats[f.cat.String()].ImageURL)

	_, err = f.svc.Delete(ctx, second.ID.String())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLibraryImagesHaveNoMain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(0)
	img, err := f.svc.Upload(ctx, Owner{}, "bandeau.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(img.ObjectKey, "library/"))

	_, err = f.svc.SetMain(ctx, img.ID.String())
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := s.Put(ctx, "jewels/x/a.png", "image/png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, "/uploads/jewels/x/a.png", url)
	got, err := os.ReadFile(filepath.Join(dir, "jewels", "x", "a.png"))
	require.NoError(t, err)
	require.Equal(t, pngHeader, got)

	require.NoError(t, s.Delete(ctx, "jewels/x/a.png"))
	require.NoError(t, s.Delete(ctx, "jewels/x/a.png"))

	_, err = s.Put(ctx, "../escape.png", "image/png", bytes.NewReader(pngHeader))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestUploadJSONEndpoint(t *testing.T) {
	f := newFixture(0)
	router := chi.NewRouter()
	NewHandler(f.svc, f.jewels, f.cats, nil).RegisterAdminRoutes(router)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("jewel_id", f.jewel.String()))
	part, err := mw.CreateFormFile("file", "bague.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"content_type":"image/png"`)
	require.Len(t, f.repo.images, 1)
}

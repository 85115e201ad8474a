package session

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

func TestMiddlewareIssuesAndReadsSession(t *testing.T) {
	m := NewManager(strings.Repeat("k", 32), "", false)

	var seen *requestctx.Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.CurrentSession(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen.ID)
	require.NotEmpty(t, seen.CSRFToken)
	first := *seen

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, CookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, first, *seen)
	require.Empty(t, rec.Result().Cookies(), "existing sessions are not re-issued")
}

func TestMiddlewareRejectsTamperedCookie(t *testing.T) {
	m := NewManager(strings.Repeat("k", 32), "", false)
	other := NewManager(strings.Repeat("x", 32), "", false)

	var seen *requestctx.Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.CurrentSession(r.Context())
	}))

	rec := httptest.NewRecorder()
	other.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	forged := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(forged)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotEmpty(t, seen.ID)
	require.Len(t, rec.Result().Cookies(), 1, "a fresh session replaces the forged one")
}

func TestCSRF(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := CSRF(4 << 20)(ok)
	sess := &requestctx.Session{ID: "s1", CSRFToken: "tok"}

	get := httptest.NewRequest(http.MethodGet, "/panier", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	require.Equal(t, http.StatusNoContent, rec.Code)

	form := url.Values{CSRFFormField: {"tok"}}
	post := httptest.NewRequest(http.MethodPost, "/panier", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post = post.WithContext(requestctx.WithSession(post.Context(), sess))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post)
	require.Equal(t, http.StatusNoContent, rec.Code)

	bad := httptest.NewRequest(http.MethodPost, "/panier", nil)
	bad.Header.Set(CSRFHeader, "nope")
	bad = bad.WithContext(requestctx.WithSession(bad.Context(), sess))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	require.Equal(t, http.StatusForbidden, rec.Code)

	api := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{}`))
	api.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, api)
	require.Equal(t, http.StatusNoContent, rec.Code)

	token := httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
	token.Header.Set("Authorization", "Bearer abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, token)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// uploadBody builds a multipart form whose token field follows a file of size bytes.
func uploadBody(t *testing.T, size int, token string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{'a'}, size))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField(CSRFFormField, token))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCSRFCapsBodyBeforeReadingToken(t *testing.T) {
	var reached bool
	h := CSRF(4 << 20)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		require.NotNil(t, r.MultipartForm)
		w.WriteHeader(http.StatusNoContent)
	}))
	sess := &requestctx.Session{ID: "s1", CSRFToken: "tok"}
	send := func(size int, p *requestctx.Principal) (int, int) {
		body, ct := uploadBody(t, size, "tok")
		counter := &countingReader{r: body}
		req := httptest.NewRequest(http.MethodPost, "/admin/images", counter)
		req.Header.Set("Content-Type", ct)
		ctx := requestctx.WithSession(req.Context(), sess)
		if p != nil {
			ctx = requestctx.WithPrincipal(ctx, p)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code, counter.n
	}

	code, read := send(8<<20, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.LessOrEqual(t, read, 2<<20)
	require.False(t, reached)

	code, _ = send(2<<20, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, code, "anonymous uploads keep the small cap")

	admin := &requestctx.Principal{UserID: uuid.New(), Role: requestctx.RoleAdmin}
	code, read = send(8<<20, admin)
	require.Equal(t, http.StatusRequestEntityTooLarge, code)
	require.LessOrEqual(t, read, 5<<20)

	code, _ = send(2<<20, admin)
	require.Equal(t, http.StatusNoContent, code)
	require.True(t, reached)
}

package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static serves the embedded stylesheet and other assets. Mount it with
// http.StripPrefix("/static/", ...).
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// View is the data every page template receives. Handlers set Title and Data;
// the renderer fills in the request-scoped fields.
type View struct {
	Title     string
	Shop      string
	User      *requestctx.Principal
	CSRFToken string
	Flash     string
	Error     string
	Data      any
}

// Renderer executes pre-parsed page templates inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
	shop  string
}

// New parses every page under templates/pages together with the layout.
func New(shopName string) (*Renderer, error) {
	entries, err := fs.ReadDir(templateFS, "templates/pages")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template), shop: shopName}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".html")
		t, err := template.New("layout.html").Funcs(Funcs()).ParseFS(templateFS,
			"templates/layout.html", "templates/pages/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// HTML renders page with status. Rendering happens into a buffer so a template
// error still yields a clean 500.
func (r *Renderer) HTML(w http.ResponseWriter, req *http.Request, status int, page string, v View) {
	t, ok := r.pages[page]
	if !ok {
		http.Error(w, "unknown page "+page, http.StatusInternalServerError)
		return
	}
	ctx := req.Context()
	v.Shop = r.shop
	v.User = requestctx.CurrentPrincipal(ctx)
	v.CSRFToken = requestctx.CurrentSession(ctx).CSRFToken
	if v.Flash == "" {
		v.Flash = req.URL.Query().Get("msg")
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		requestctx.Logger(ctx).Error("render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Has reports whether a page template exists.
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}

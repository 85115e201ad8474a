package category

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
)

// Handler exposes category endpoints: a public JSON listing and the admin pages.
type Handler struct {
	service Service
	views   *render.Renderer
}

func NewHandler(service Service, views *render.Renderer) *Handler {
	return &Handler{service: service, views: views}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/categories", h.listJSON)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.adminList)
		r.Post("/", h.adminCreate)
		r.Post("/{id}", h.adminUpdate)
		r.Post("/{id}/delete", h.adminDelete)
	})
}

func (h *Handler) listJSON(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, cats)
}

// AdminPage is the data behind the admin category screen.
type AdminPage struct {
	Categories []*Category
	Form       SaveCategoryRequest
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, http.StatusOK, "", SaveCategoryRequest{})
}

func (h *Handler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, errMsg string, form SaveCategoryRequest) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.views.HTML(w, r, status, "admin_categories", render.View{
		Title: "Catégories",
		Error: errMsg,
		Data:  AdminPage{Categories: cats, Form: form},
	})
}

func (h *Handler) adminCreate(w http.ResponseWriter, r *http.Request) {
	req, err := formRequest(r)
	if err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, err.Error(), req)
		return
	}
	if _, err := h.service.CreateCategory(r.Context(), req); err != nil {
		h.renderAdmin(w, r, statusFor(err), err.Error(), req)
		return
	}
	http.Redirect(w, r, "/admin/categories?msg="+url.QueryEscape("Catégorie créée"), http.StatusSeeOther)
}

func (h *Handler) adminUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := formRequest(r)
	if err != nil {
		h.renderAdmin(w, r, http.StatusBadRequest, err.Error(), req)
		return
	}
	if _, err := h.service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		h.renderAdmin(w, r, statusFor(err), err.Error(), req)
		return
	}
	http.Redirect(w, r, "/admin/categories?msg="+url.QueryEscape("Catégorie mise à jour"), http.StatusSeeOther)
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.renderAdmin(w, r, statusFor(err), err.Error(), SaveCategoryRequest{})
		return
	}
	http.Redirect(w, r, "/admin/categories?msg="+url.QueryEscape("Catégorie supprimée"), http.StatusSeeOther)
}

var errBadPosition = errors.New("Position invalide")

// formRequest reads the admin form. A blank position means 0.
func formRequest(r *http.Request) (SaveCategoryRequest, error) {
	req := SaveCategoryRequest{
		Name:        r.PostFormValue("name"),
		Slug:        r.PostFormValue("slug"),
		Description: r.PostFormValue("description"),
		ImageURL:    r.PostFormValue("image_url"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("position")); raw != "" {
		pos, err := strconv.Atoi(raw)
		if err != nil {
			return req, errBadPosition
		}
		req.Position = pos
	}
	return req, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrSlugTaken), errors.Is(err, ErrInUse):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

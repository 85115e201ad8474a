package media

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/catalog"
	"github.com/georgemunganga/bijoux-shop/internal/modules/category"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Handler exposes the admin image screens.
type Handler struct {
	service    Service
	jewels     Jewels
	categories Categories
	views      *render.Renderer
}

func NewHandler(service Service, jewels Jewels, categories Categories, views *render.Renderer) *Handler {
	return &Handler{service: service, jewels: jewels, categories: categories, views: views}
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/images", func(r chi.Router) {
		r.Get("/", h.page)
		r.Post("/", h.uploadForm)
		r.Post("/{id}/main", h.setMainForm)
		r.Post("/{id}/delete", h.deleteForm)
	})
	r.Post("/api/images", h.uploadJSON)
}

// Message turns an upload error into the sentence shown in the back-office.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrTooLarge):
		return "Image trop lourde (5 Mo maximum)."
	case errors.Is(err, ErrUnsupportedType):
		return "Format non pris en charge : JPEG, PNG, WebP ou GIF uniquement."
	case errors.Is(err, ErrNotFound):
		return "Image introuvable."
	case errors.Is(err, ErrInvalid):
		return "Fichier ou destination invalide."
	default:
		return "Une erreur est survenue."
	}
}

// ImagesPage is the data behind the image manager.
type ImagesPage struct {
	Images   []*Image
	Jewel    *catalog.JewelView
	Category *category.Category
	MaxMB    int64
}

func ownerFromValues(jewelID, categoryID string) (Owner, error) {
	var o Owner
	if jewelID != "" {
		id, err := uuid.Parse(jewelID)
		if err != nil {
			return o, ErrInvalid
		}
		o.JewelID = &id
	}
	if categoryID != "" {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			return o, ErrInvalid
		}
		o.CategoryID = &id
	}
	if !o.valid() {
		return o, ErrInvalid
	}
	return o, nil
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	owner, err := ownerFromValues(q.Get("jewel"), q.Get("category"))
	if err != nil {
		http.Redirect(w, r, "/admin/images", http.StatusSeeOther)
		return
	}
	data := ImagesPage{MaxMB: h.service.MaxBytes() >> 20}
	switch {
	case owner.JewelID != nil:
		if data.Jewel, err = h.jewels.GetJewelAdmin(ctx, owner.JewelID.String()); err != nil {
			h.missingOwner(w, r, err)
			return
		}
		data.Images, err = h.service.List(ctx, owner)
	case owner.CategoryID != nil:
		if data.Category, err = h.categories.GetCategory(ctx, owner.CategoryID.String()); err != nil {
			h.missingOwner(w, r, err)
			return
		}
		data.Images, err = h.service.List(ctx, owner)
	default:
		data.Images, err = h.service.Recent(ctx, 0)
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "admin_images", render.View{Title: "Images", Data: data})
}

func (h *Handler) missingOwner(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, category.ErrNotFound) {
		h.views.HTML(w, r, http.StatusNotFound, "not_found", render.View{Title: "Introuvable"})
		return
	}
	h.serverError(w, r, err)
}

// backTo is the image manager URL for owner.
func backTo(owner Owner, msg string) string {
	q := url.Values{}
	if owner.JewelID != nil {
		q.Set("jewel", owner.JewelID.String())
	}
	if owner.CategoryID != nil {
		q.Set("category", owner.CategoryID.String())
	}
	if msg != "" {
		q.Set("msg", msg)
	}
	if len(q) == 0 {
		return "/admin/images"
	}
	return "/admin/images?" + q.Encode()
}

// upload parses the multipart form and stores its "file" part.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) (Owner, *Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxBytes()+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return Owner{}, nil, ErrTooLarge
		}
		return Owner{}, nil, ErrInvalid
	}
	defer r.MultipartForm.RemoveAll()

	owner, err := ownerFromValues(r.FormValue("jewel_id"), r.FormValue("category_id"))
	if err != nil {
		return owner, nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return owner, nil, ErrInvalid
	}
	defer file.Close()
	img, err := h.service.Upload(r.Context(), owner, header.Filename, file)
	return owner, img, err
}

func (h *Handler) uploadForm(w http.ResponseWriter, r *http.Request) {
	owner, _, err := h.upload(w, r)
	msg := "Image ajoutée."
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.serverError(w, r, err)
			return
		}
		msg = Message(err)
	}
	http.Redirect(w, r, backTo(owner, msg), http.StatusSeeOther)
}

func (h *Handler) uploadJSON(w http.ResponseWriter, r *http.Request) {
	_, img, err := h.upload(w, r)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			requestctx.Logger(r.Context()).Error("image upload", zap.Error(err))
		}
		respond(w, status, map[string]string{"error": Message(err)})
		return
	}
	respond(w, http.StatusCreated, img)
}

func (h *Handler) setMainForm(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.SetMain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.serverError(w, r, err)
			return
		}
		http.Redirect(w, r, backTo(Owner{}, Message(err)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, backTo(Owner{JewelID: img.JewelID, CategoryID: img.CategoryID}, "Image principale mise à jour."), http.StatusSeeOther)
}

func (h *Handler) deleteForm(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.serverError(w, r, err)
			return
		}
		http.Redirect(w, r, backTo(Owner{}, Message(err)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, backTo(Owner{JewelID: img.JewelID, CategoryID: img.CategoryID}, "Image supprimée."), http.StatusSeeOther)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("media handler", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

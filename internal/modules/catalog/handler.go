package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/category"
	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
	"github.com/georgemunganga/bijoux-shop/internal/platform/pagination"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

const homeShelfSize = 8

// Handler exposes the storefront catalog pages, the catalog JSON API and the
// admin jewel screens.
type Handler struct {
	service    Service
	categories category.Service
	views      *render.Renderer
}

func NewHandler(service Service, categories category.Service, views *render.Renderer) *Handler {
	return &Handler{service: service, categories: categories, views: views}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/bijoux", h.listPage)
	r.Get("/bijoux/{category}", h.listPage)
	r.Get("/bijou/{slug}", h.detailPage)

	r.Route("/api/v1/jewels", func(r chi.Router) {
		r.Get("/", h.listJSON)
		r.Get("/{slug}", h.getJSON)
	})
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/jewels", func(r chi.Router) {
		r.Get("/", h.adminList)
		r.Get("/export.xlsx", h.adminExport)
		r.Get("/new", h.adminNew)
		r.Post("/", h.adminCreate)
		r.Get("/{id}", h.adminEdit)
		r.Post("/{id}", h.adminUpdate)
		r.Post("/{id}/delete", h.adminDelete)
		r.Post("/{id}/discount", h.adminSetDiscount)
		r.Post("/{id}/discount/clear", h.adminClearDiscount)
	})
}

// HomePage is the data behind the storefront home page.
type HomePage struct {
	Categories  []*category.Category
	NewArrivals []*JewelView
	BestSellers []*JewelView
}

// ListPage is the data behind a catalog listing.
type ListPage struct {
	Category   *category.Category
	Categories []*category.Category
	Jewels     []*JewelView
	Page       pagination.Page
	Filter     ListFilter
	Query      url.Values
	Sorts      []SortOption
}

// DetailPage is the data behind a jewel page.
type DetailPage struct {
	Jewel *JewelView
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	newest, _, err := h.service.ListJewels(ctx, ListFilter{Sort: SortNewest, PerPage: homeShelfSize})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	best, _, err := h.service.ListJewels(ctx, ListFilter{Sort: SortBestSellers, PerPage: homeShelfSize})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	cats, err := h.categories.ListCategories(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "home", render.View{
		Title: "Accueil",
		Data:  HomePage{Categories: cats, NewArrivals: newest, BestSellers: best},
	})
}

func (h *Handler) listPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := FilterFromQuery(r.URL.Query())

	var current *category.Category
	title := "Tous nos bijoux"
	if slug := chi.URLParam(r, "category"); slug != "" {
		c, err := h.categories.GetBySlug(ctx, slug)
		if errors.Is(err, category.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		current = c
		title = c.Name
		f.CategorySlug = c.Slug
	}

	jewels, page, err := h.service.ListJewels(ctx, f)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	cats, err := h.categories.ListCategories(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	f.Sort = ParseSort(string(f.Sort))
	h.views.HTML(w, r, http.StatusOK, "catalog_list", render.View{
		Title: title,
		Data: ListPage{
			Category:   current,
			Categories: cats,
			Jewels:     jewels,
			Page:       page,
			Filter:     f,
			Query:      r.URL.Query(),
			Sorts:      SortOptions,
		},
	})
}

func (h *Handler) detailPage(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetJewel(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "jewel_detail", render.View{Title: v.Name, Data: DetailPage{Jewel: v}})
}

func (h *Handler) listJSON(w http.ResponseWriter, r *http.Request) {
	jewels, page, err := h.service.ListJewels(r.Context(), FilterFromQuery(r.URL.Query()))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"items": jewels, "page": page})
}

func (h *Handler) getJSON(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetJewel(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respond(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, v)
}

// FilterFromQuery reads listing filters from query parameters. Prices accept
// a decimal comma.
func FilterFromQuery(q url.Values) ListFilter {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	inStock := q.Get("in_stock")
	return ListFilter{
		CategorySlug: q.Get("category"),
		Material:     strings.TrimSpace(q.Get("material")),
		MinPrice:     parseAmount(q.Get("min_price")),
		MaxPrice:     parseAmount(q.Get("max_price")),
		InStock:      inStock == "1" || inStock == "true" || inStock == "on",
		Search:       strings.TrimSpace(q.Get("q")),
		Sort:         ParseSort(q.Get("sort")),
		Page:         page,
		PerPage:      perPage,
	}
}

func parseAmount(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// ---- admin ----

// AdminListPage is the data behind the admin jewel table.
type AdminListPage struct {
	Jewels []*JewelView
	Page   pagination.Page
	Query  url.Values
}

// AdminFormPage is the data behind the jewel create/edit form.
type AdminFormPage struct {
	Jewel      *JewelView
	Form       SaveJewelRequest
	SizesText  string
	Categories []*category.Category
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	f := FilterFromQuery(r.URL.Query())
	f.IncludeInactive = true
	if r.URL.Query().Get("sort") == "" {
		f.Sort = SortNewest
	}
	jewels, page, err := h.service.ListJewels(r.Context(), f)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "admin_jewels", render.View{
		Title: "Bijoux",
		Data:  AdminListPage{Jewels: jewels, Page: page, Query: r.URL.Query()},
	})
}

func (h *Handler) adminExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", "attachment; filename=bijoux-"+time.Now().Format("20060102")+".xlsx")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := h.service.ExportJewels(r.Context(), w); err != nil {
		requestctx.Logger(r.Context()).Error("export jewels", zap.Error(err))
	}
}

func (h *Handler) adminNew(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "", nil, SaveJewelRequest{IsActive: true}, "")
}

func (h *Handler) adminEdit(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetJewelAdmin(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	form := SaveJewelRequest{
		Name:        v.Name,
		Slug:        v.Slug,
		Description: v.Description,
		Material:    v.Material,
		BasePrice:   v.BasePrice,
		Stock:       v.Stock,
		Sizes:       v.Sizes,
		IsActive:    v.IsActive,
	}
	if v.CategoryID != nil {
		form.CategoryID = v.CategoryID.String()
	}
	h.renderForm(w, r, http.StatusOK, "", v, form, formatSizes(v.Sizes))
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, errMsg string, v *JewelView, form SaveJewelRequest, sizes string) {
	cats, err := h.categories.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	title := "Nouveau bijou"
	if v != nil {
		title = v.Name
	}
	h.views.HTML(w, r, status, "admin_jewel_form", render.View{
		Title: title,
		Error: errMsg,
		Data:  AdminFormPage{Jewel: v, Form: form, SizesText: sizes, Categories: cats},
	})
}

func (h *Handler) adminCreate(w http.ResponseWriter, r *http.Request) {
	req, sizes, err := formRequest(r)
	if err == nil {
		var j *Jewel
		if j, err = h.service.CreateJewel(r.Context(), req); err == nil {
			http.Redirect(w, r, "/admin/jewels/"+j.ID.String()+"?msg="+url.QueryEscape("Bijou créé"), http.StatusSeeOther)
			return
		}
	}
	h.renderForm(w, r, statusFor(err), err.Error(), nil, req, sizes)
}

func (h *Handler) adminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, sizes, err := formRequest(r)
	if err == nil {
		if _, err = h.service.UpdateJewel(r.Context(), id, req); err == nil {
			http.Redirect(w, r, "/admin/jewels/"+id+"?msg="+url.QueryEscape("Bijou mis à jour"), http.StatusSeeOther)
			return
		}
	}
	v, _ := h.service.GetJewelAdmin(r.Context(), id)
	h.renderForm(w, r, statusFor(err), err.Error(), v, req, sizes)
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteJewel(r.Context(), chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/admin/jewels?msg="+url.QueryEscape("Bijou retiré de la vente"), http.StatusSeeOther)
}

func (h *Handler) adminSetDiscount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := discountForm(r)
	if err == nil {
		err = h.service.SetDiscount(r.Context(), id, d)
	}
	if err != nil {
		http.Redirect(w, r, "/admin/jewels/"+id+"?msg="+url.QueryEscape("Remise refusée : "+err.Error()), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/jewels/"+id+"?msg="+url.QueryEscape("Remise enregistrée"), http.StatusSeeOther)
}

func (h *Handler) adminClearDiscount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.ClearDiscount(r.Context(), id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/admin/jewels/"+id+"?msg="+url.QueryEscape("Remise supprimée"), http.StatusSeeOther)
}

func formRequest(r *http.Request) (SaveJewelRequest, string, error) {
	sizesText := r.PostFormValue("sizes")
	req := SaveJewelRequest{
		Name:        r.PostFormValue("name"),
		Slug:        r.PostFormValue("slug"),
		Description: r.PostFormValue("description"),
		CategoryID:  r.PostFormValue("category_id"),
		Material:    r.PostFormValue("material"),
		IsActive:    r.PostFormValue("is_active") != "",
	}
	price := parseAmount(r.PostFormValue("base_price"))
	if price == nil {
		return req, sizesText, fmt.Errorf("%w: base price", ErrInvalid)
	}
	req.BasePrice = *price
	if s := strings.TrimSpace(r.PostFormValue("stock")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return req, sizesText, fmt.Errorf("%w: stock", ErrInvalid)
		}
		req.Stock = n
	}
	sizes, err := ParseSizes(sizesText)
	if err != nil {
		return req, sizesText, err
	}
	req.Sizes = sizes
	return req, sizesText, nil
}

func discountForm(r *http.Request) (pricing.Discount, error) {
	d := pricing.Discount{Type: pricing.ParseDiscountType(r.PostFormValue("discount_type"))}
	v := parseAmount(r.PostFormValue("discount_value"))
	if v == nil {
		return d, ErrInvalid
	}
	d.Value = *v
	var err error
	if d.StartsAt, err = parseLocalTime(r.PostFormValue("starts_at")); err != nil {
		return d, ErrInvalid
	}
	if d.EndsAt, err = parseLocalTime(r.PostFormValue("ends_at")); err != nil {
		return d, ErrInvalid
	}
	return d, nil
}

// parseLocalTime reads an <input type="datetime-local"> value.
func parseLocalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, r, http.StatusNotFound, "not_found", render.View{Title: "Page introuvable"})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("catalog handler", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrSlugTaken):
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

package marketing

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

// Handler exposes newsletter pages and the admin email editor.
type Handler struct {
	service Service
	views   *render.Renderer
}

func NewHandler(service Service, views *render.Renderer) *Handler {
	return &Handler{service: service, views: views}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/newsletter", h.newsletterPage)
	r.Post("/newsletter", h.subscribeForm)
	r.Get("/newsletter/desinscription", h.unsubscribePage)
	r.Post("/newsletter/desinscription", h.unsubscribeForm)
	r.Post("/api/v1/newsletter", h.subscribeJSON)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/email", h.editor)
	r.Post("/email", h.editorAction)
}

// NewsletterPage is the data behind the public newsletter page.
type NewsletterPage struct {
	Unsubscribe bool
	Done        bool
	Token       string
}

func (h *Handler) newsletterPage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, r, http.StatusOK, "newsletter", render.View{Title: "Newsletter", Data: NewsletterPage{}})
}

func (h *Handler) subscribeForm(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.Subscribe(r.Context(), r.PostFormValue("email"))
	if errors.Is(err, ErrInvalid) {
		h.views.HTML(w, r, http.StatusUnprocessableEntity, "newsletter", render.View{
			Title: "Newsletter",
			Error: "Adresse email invalide.",
			Data:  NewsletterPage{},
		})
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	msg := "Merci ! Vous êtes inscrit(e) à notre newsletter."
	http.Redirect(w, r, "/newsletter?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

// unsubscribePage asks for confirmation; link scanners only issue GETs.
func (h *Handler) unsubscribePage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, r, http.StatusOK, "newsletter", render.View{
		Title: "Désinscription",
		Data:  NewsletterPage{Unsubscribe: true, Token: r.URL.Query().Get("token")},
	})
}

func (h *Handler) unsubscribeForm(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.Unsubscribe(r.Context(), r.PostFormValue("token"))
	if errors.Is(err, ErrNotFound) {
		h.views.HTML(w, r, http.StatusNotFound, "newsletter", render.View{
			Title: "Désinscription",
			Error: "Ce lien de désinscription n'est pas valide.",
			Data:  NewsletterPage{Unsubscribe: true},
		})
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, http.StatusOK, "newsletter", render.View{
		Title: "Désinscription",
		Flash: "Vous ne recevrez plus notre newsletter.",
		Data:  NewsletterPage{Unsubscribe: true, Done: true},
	})
}

func (h *Handler) subscribeJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sub, err := h.service.Subscribe(r.Context(), req.Email)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			requestctx.Logger(r.Context()).Error("subscribe", zap.Error(err))
		}
		respond(w, status, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sub)
}

// EditorPage is the data behind the single email editor screen.
type EditorPage struct {
	Campaign    *Campaign
	Form        SaveCampaignRequest
	Preview     template.HTML
	Campaigns   []*Campaign
	Subscribers int
}

func (h *Handler) editor(w http.ResponseWriter, r *http.Request) {
	draft, err := h.service.CurrentDraft(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	form := SaveCampaignRequest{Subject: draft.Subject, BodyMarkdown: draft.BodyMarkdown}
	h.renderEditor(w, r, http.StatusOK, "", draft, form, "")
}

func (h *Handler) renderEditor(w http.ResponseWriter, r *http.Request, status int, errMsg string, c *Campaign, form SaveCampaignRequest, preview template.HTML) {
	campaigns, err := h.service.ListCampaigns(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	count, err := h.service.SubscriberCount(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.HTML(w, r, status, "admin_email_editor", render.View{
		Title: "Email marketing",
		Error: errMsg,
		Data: EditorPage{
			Campaign: c, Form: form, Preview: preview,
			Campaigns: campaigns, Subscribers: count,
		},
	})
}

// editorAction handles the editor's three buttons: preview, save and send.
// Send saves first so what is sent is what is on screen.
func (h *Handler) editorAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PostFormValue("id")
	form := SaveCampaignRequest{Subject: r.PostFormValue("subject"), BodyMarkdown: r.PostFormValue("body_markdown")}
	current := &Campaign{Status: CampaignDraft, Subject: form.Subject, BodyMarkdown: form.BodyMarkdown}

	switch r.PostFormValue("action") {
	case "preview":
		preview, err := h.service.Preview(ctx, form)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if id != "" {
			if c, err := h.service.SaveDraft(ctx, id, form); err == nil {
				current = c
			}
		}
		h.renderEditor(w, r, http.StatusOK, "", current, form, preview)
		return

	case "send":
		c, err := h.service.SaveDraft(ctx, id, form)
		if err != nil {
			h.editorError(w, r, err, current, form)
			return
		}
		sent, err := h.service.Send(ctx, c.ID.String())
		if err != nil && sent == nil {
			h.editorError(w, r, err, c, form)
			return
		}
		if err != nil {
			requestctx.Logger(ctx).Error("campaign send", zap.Error(err))
		}
		msg := "Campagne envoyée à " + strconv.Itoa(sent.RecipientCount-sent.FailedCount) + " abonné(s)."
		if sent.FailedCount > 0 {
			msg += " " + strconv.Itoa(sent.FailedCount) + " échec(s)."
		}
		if sent.PendingCount > 0 {
			msg += " " + strconv.Itoa(sent.PendingCount) + " non envoyé(s)."
		}
		http.Redirect(w, r, "/admin/email?msg="+url.QueryEscape(msg), http.StatusSeeOther)
		return

	default:
		if _, err := h.service.SaveDraft(ctx, id, form); err != nil {
			h.editorError(w, r, err, current, form)
			return
		}
		http.Redirect(w, r, "/admin/email?msg="+url.QueryEscape("Brouillon enregistré."), http.StatusSeeOther)
	}
}

func (h *Handler) editorError(w http.ResponseWriter, r *http.Request, err error, c *Campaign, form SaveCampaignRequest) {
	var msg string
	switch {
	case errors.Is(err, ErrInvalid):
		msg = "L'objet et le contenu de l'email sont obligatoires."
	case errors.Is(err, ErrAlreadySent):
		msg = "Cette campagne a déjà été envoyée."
	case errors.Is(err, ErrNoRecipients):
		msg = "Aucun abonné à qui envoyer cette campagne."
	case errors.Is(err, ErrNotFound):
		msg = "Campagne introuvable."
	default:
		h.serverError(w, r, err)
		return
	}
	h.renderEditor(w, r, statusFor(err), msg, c, form, "")
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("marketing handler", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAlreadySent), errors.Is(err, ErrNoRecipients):
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

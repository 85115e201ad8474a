package render_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/bijoux-shop/internal/modules/auth"
	"github.com/georgemunganga/bijoux-shop/internal/modules/cart"
	"github.com/georgemunganga/bijoux-shop/internal/modules/catalog"
	"github.com/georgemunganga/bijoux-shop/internal/modules/marketing"
	"github.com/georgemunganga/bijoux-shop/internal/modules/order"
	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
	"github.com/georgemunganga/bijoux-shop/internal/platform/pagination"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
)

func newRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New("Maison Perle")
	require.NoError(t, err)
	return r
}

func get(t *testing.T, views *render.Renderer, target, page string, p *requestctx.Principal, v render.View) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := requestctx.WithSession(req.Context(), &requestctx.Session{ID: "sid", CSRFToken: "tok123"})
	if p != nil {
		ctx = requestctx.WithPrincipal(ctx, p)
	}
	rec := httptest.NewRecorder()
	views.HTML(rec, req.WithContext(ctx), http.StatusOK, page, v)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return rec, doc
}

func TestEveryPageParses(t *testing.T) {
	views := newRenderer(t)
	for _, page := range []string{
		"home", "catalog_list", "jewel_detail", "cart", "login", "register", "checkout",
		"orders", "order_detail", "newsletter", "not_found",
		"admin_dashboard", "admin_jewels", "admin_jewel_form", "admin_categories", "admin_promos",
		"admin_orders", "admin_stock", "admin_email_editor", "admin_images",
	} {
		require.True(t, views.Has(page), page)
	}
	require.False(t, views.Has("layout"))
}

func TestUnknownPageIsServerError(t *testing.T) {
	rec, _ := get(t, newRenderer(t), "/", "nope", nil, render.View{})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPriceUsesFrenchDecimalComma(t *testing.T) {
	require.Contains(t, render.Price(12.5), "12,50")
	require.True(t, strings.HasSuffix(render.Price(0), "€"))
}

func TestLayoutNavigationDependsOnRole(t *testing.T) {
	views := newRenderer(t)

	_, doc := get(t, views, "/connexion", "login", nil, render.View{Title: "Connexion", Data: auth.FormPage{Next: "/"}})
	require.Equal(t, 0, doc.Find("nav.admin-nav").Length())
	require.Equal(t, "Maison Perle", doc.Find("a.brand").Text())
	token, _ := doc.Find(`form[action="/connexion"] input[name="csrf_token"]`).Attr("value")
	require.Equal(t, "tok123", token)

	admin := &requestctx.Principal{UserID: uuid.New(), Email: "admin@example.com", Role: requestctx.RoleAdmin}
	_, doc = get(t, views, "/newsletter", "newsletter", admin, render.View{Data: marketing.NewsletterPage{}})
	require.Equal(t, 1, doc.Find("nav.admin-nav").Length())
	require.Contains(t, doc.Find("form[action='/deconnexion'] button").Text(), "admin@example.com")
}

func TestFlashComesFromQuery(t *testing.T) {
	_, doc := get(t, newRenderer(t), "/panier?msg="+url.QueryEscape("Article ajouté"), "cart", nil, render.View{
		Data: cart.Page{Summary: &cart.Summary{Currency: "EUR"}},
	})
	require.Equal(t, "Article ajouté", doc.Find("p.flash").Text())
	require.Contains(t, doc.Find("p.empty").Text(), "Votre panier est vide")
}

func TestCatalogListShowsDiscountAndBadge(t *testing.T) {
	now := time.Now()
	j := &catalog.Jewel{ID: uuid.New(), Name: "Bague Éclat", Slug: "bague-eclat", BasePrice: 100, Stock: 2, CreatedAt: now}
	view := &catalog.JewelView{
		Jewel: j,
		Price: pricing.Price{Base: 100, Final: 80, Savings: 20, DiscountActive: true, Percent: 20},
		Badge: &pricing.Badge{Kind: pricing.BadgePromo, Label: "-20 %"},
	}
	q := url.Values{"sort": {"price_asc"}}
	_, doc := get(t, newRenderer(t), "/bijoux?sort=price_asc", "catalog_list", nil, render.View{
		Title: "Tous nos bijoux",
		Data: catalog.ListPage{
			Jewels: []*catalog.JewelView{view},
			Page:   pagination.New(1, 12, 30),
			Filter: catalog.ListFilter{Sort: catalog.SortPriceAsc},
			Query:  q,
			Sorts:  catalog.SortOptions,
		},
	})

	card := doc.Find("article.jewel-card")
	require.Equal(t, 1, card.Length())
	require.Equal(t, "/bijou/bague-eclat", card.Find("a").AttrOr("href", ""))
	require.Equal(t, "-20 %", card.Find("span.badge-promo").Text())
	require.Contains(t, card.Find("del").Text(), "100,00")
	require.Contains(t, card.Find("strong").Text(), "80,00")
	require.Equal(t, "price_asc", doc.Find("select[name=sort] option[selected]").AttrOr("value", ""))
	require.Equal(t, "1", doc.Find("nav.pager span.current").Text())
	require.Equal(t, "?page=2&sort=price_asc", doc.Find("nav.pager a[rel=next]").AttrOr("href", ""))
}

func TestOrderDetailCancelOnlyWhilePending(t *testing.T) {
	views := newRenderer(t)
	customer := &requestctx.Principal{UserID: uuid.New(), Email: "c@example.com", Role: requestctx.RoleCustomer}
	o := &order.Order{
		ID: uuid.New(), OrderNumber: "ORD-20260101-ABCD", Status: order.StatusPending,
		Subtotal: 50, Total: 55.9, ShippingFee: 5.9,
		ShippingAddress: order.ShippingAddress{FullName: "Jeanne Martin", Line1: "1 rue de la Paix", PostalCode: "75002", City: "Paris", Country: "France"},
		Items:           []*order.OrderItem{{JewelName: "Collier", Quantity: 1, UnitPrice: 50, LineTotal: 50}},
	}

	_, doc := get(t, views, "/commandes/"+o.OrderNumber, "order_detail", customer, render.View{Data: order.DetailPage{Order: o}})
	require.Equal(t, 1, doc.Find(`form[action="/commandes/ORD-20260101-ABCD/annuler"]`).Length())
	require.Contains(t, doc.Find("address").Text(), "Jeanne Martin")

	o.Status = order.StatusShipped
	_, doc = get(t, views, "/commandes/"+o.OrderNumber, "order_detail", customer, render.View{Data: order.DetailPage{Order: o}})
	require.Equal(t, 0, doc.Find(`form[action$="/annuler"]`).Length())

	admin := &requestctx.Principal{UserID: uuid.New(), Email: "a@example.com", Role: requestctx.RoleAdmin}
	_, doc = get(t, views, "/admin/orders/"+o.OrderNumber, "order_detail", admin, render.View{Data: order.DetailPage{Order: o, Admin: true}})
	opts := doc.Find(`form.status-form select[name=status] option`)
	require.Equal(t, 1, opts.Length())
	require.Equal(t, "DELIVERED", opts.AttrOr("value", ""))
}

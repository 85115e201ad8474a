package catalog

import (
	"bytes"
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type memRepo struct {
	jewels    map[uuid.UUID]*Jewel
	views     map[uuid.UUID]int
	discounts map[string]*pricing.Discount
	lastLimit int
}

func newMemRepo(jewels ...*Jewel) *memRepo {
	m := &memRepo{jewels: map[uuid.UUID]*Jewel{}, views: map[uuid.UUID]int{}, discounts: map[string]*pricing.Discount{}}
	for _, j := range jewels {
		m.jewels[j.ID] = j
	}
	return m
}

func (m *memRepo) Create(_ context.Context, j *Jewel) error {
	for _, o := range m.jewels {
		if o.Slug == j.Slug {
			return ErrSlugTaken
		}
	}
	j.CreatedAt = fixedNow
	m.jewels[j.ID] = j
	return nil
}

func (m *memRepo) Update(_ context.Context, j *Jewel) error {
	if _, ok := m.jewels[j.ID]; !ok {
		return ErrNotFound
	}
	m.jewels[j.ID] = j
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Jewel, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	j, ok := m.jewels[uid]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memRepo) GetBySlug(_ context.Context, slug string) (*Jewel, error) {
	for _, j := range m.jewels {
		if j.Slug == slug {
			cp := *j
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*Jewel, error) {
	var out []*Jewel
	for _, id := range ids {
		if j, ok := m.jewels[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memRepo) List(_ context.Context, f ListFilter, _ time.Time, limit, offset int) ([]*Jewel, error) {
	m.lastLimit = limit
	all := m.filtered(f)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memRepo) Count(_ context.Context, f ListFilter, _ time.Time) (int, error) {
	return len(m.filtered(f)), nil
}

func (m *memRepo) filtered(f ListFilter) []*Jewel {
	var out []*Jewel
	for _, j := range m.jewels {
		if !f.IncludeInactive && !j.IsActive {
			continue
		}
		if f.CategorySlug != "" && j.CategorySlug != f.CategorySlug {
			continue
		}
		out = append(out, j)
	}
	return out
}

func (m *memRepo) All(_ context.Context) ([]*Jewel, error) {
	return m.filtered(ListFilter{IncludeInactive: true}), nil
}

func (m *memRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	m.views[id]++
	return nil
}

func (m *memRepo) SetDiscount(_ context.Context, id string, d *pricing.Discount) error {
	m.discounts[id] = d
	return nil
}

func (m *memRepo) SetMainImage(_ context.Context, id string, url string) error {
	uid, _ := uuid.Parse(id)
	j, ok := m.jewels[uid]
	if !ok {
		return ErrNotFound
	}
	j.MainImageURL = url
	return nil
}

func (m *memRepo) Deactivate(_ context.Context, id string) error {
	uid, _ := uuid.Parse(id)
	j, ok := m.jewels[uid]
	if !ok {
		return ErrNotFound
	}
	j.IsActive = false
	return nil
}

func newTestService(repo Repository) Service {
	return NewService(repo, Settings{Currency: "EUR", PerPage: 2, Badges: pricing.DefaultBadgeRules()},
		WithClock(func() time.Time { return fixedNow }))
}

func jewel(name string, base float64, stock int) *Jewel {
	return &Jewel{
		ID:        uuid.New(),
		Name:      name,
		Slug:      name,
		BasePrice: base,
		Stock:     stock,
		IsActive:  true,
		CreatedAt: fixedNow.AddDate(-1, 0, 0),
	}
}

func TestListJewelsResolvesPriceAndBadge(t *testing.T) {
	promo := jewel("bague-saphir", 200, 10)
	promo.Discount = &pricing.Discount{Type: pricing.DiscountPercentage, Value: 25}
	low := jewel("collier-perle", 80, 2)
	repo := newMemRepo(promo, low)

	views, page, err := newTestService(repo).ListJewels(context.Background(), ListFilter{Page: 1})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, 2, repo.lastLimit)
	require.Len(t, views, 2)

	byName := map[string]*JewelView{}
	for _, v := range views {
		byName[v.Name] = v
	}
	require.Equal(t, 150.0, byName["bague-saphir"].Price.Final)
	require.Equal(t, pricing.BadgePromo, byName["bague-saphir"].Badge.Kind)
	require.Equal(t, pricing.BadgeLastChance, byName["collier-perle"].Badge.Kind)
}

func TestListJewelsEmpty(t *testing.T) {
	views, page, err := newTestService(newMemRepo()).ListJewels(context.Background(), ListFilter{Page: 4})
	require.NoError(t, err)
	require.Empty(t, views)
	require.Equal(t, 0, page.Total)
}

func TestGetJewelCountsViewAndHidesInactive(t *testing.T) {
	active := jewel("bracelet-jonc", 45, 5)
	hidden := jewel("bague-retiree", 45, 5)
	hidden.IsActive = false
	repo := newMemRepo(active, hidden)
	svc := newTestService(repo)

	v, err := svc.GetJewel(context.Background(), "bracelet-jonc")
	require.NoError(t, err)
	require.Equal(t, 1, v.ViewCount)
	require.Equal(t, 1, repo.views[active.ID])

	_, err = svc.GetJewel(context.Background(), hidden.ID.String())
	require.ErrorIs(t, err, ErrNotFound)

	admin, err := svc.GetJewelAdmin(context.Background(), hidden.ID.String())
	require.NoError(t, err)
	require.False(t, admin.IsActive)
}

func TestCreateJewelSanitizesAndSumsSizes(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	j, err := svc.CreateJewel(context.Background(), SaveJewelRequest{
		Name:        "Bague Émeraude",
		Description: `<p>Or 18 carats</p><script>alert(1)</script>`,
		BasePrice:   129.999,
		Sizes:       []SizeStock{{Size: "52", Stock: 2}, {Size: " 54 ", Stock: 3}, {Size: "", Stock: 9}},
		IsActive:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "bague-emeraude", j.Slug)
	require.Equal(t, "<p>Or 18 carats</p>", j.Description)
	require.Equal(t, 130.0, j.BasePrice)
	require.Equal(t, "EUR", j.Currency)
	require.Equal(t, 5, j.Stock)
	require.Equal(t, 3, j.Available("54"))
	require.Equal(t, 0, j.Available("56"))
	require.Equal(t, 0, j.Available(""))
}

func TestCreateJewelValidation(t *testing.T) {
	svc := newTestService(newMemRepo())
	cases := []SaveJewelRequest{
		{Name: ""},
		{Name: "Bague", BasePrice: -1},
		{Name: "Bague", CategoryID: "not-a-uuid"},
		{Name: "Bague", Sizes: []SizeStock{{Size: "52", Stock: 1}, {Size: "52", Stock: 2}}},
		{Name: "Bague", Sizes: []SizeStock{{Size: "52", Stock: -1}}},
	}
	for _, req := range cases {
		_, err := svc.CreateJewel(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalid, "%+v", req)
	}
}

func TestSetDiscountValidation(t *testing.T) {
	j := jewel("bague", 100, 1)
	repo := newMemRepo(j)
	svc := newTestService(repo)
	id := j.ID.String()

	require.ErrorIs(t, svc.SetDiscount(context.Background(), id, pricing.Discount{Type: pricing.DiscountPercentage, Value: 120}), ErrInvalid)
	require.ErrorIs(t, svc.SetDiscount(context.Background(), id, pricing.Discount{Type: pricing.DiscountFixed, Value: 0}), ErrInvalid)

	start := fixedNow
	end := fixedNow.Add(-time.Hour)
	require.ErrorIs(t, svc.SetDiscount(context.Background(), id, pricing.Discount{Type: pricing.DiscountFixed, Value: 5, StartsAt: &start, EndsAt: &end}), ErrInvalid)

	require.NoError(t, svc.SetDiscount(context.Background(), id, pricing.Discount{Type: pricing.DiscountFixed, Value: 15}))
	require.Equal(t, 15.0, repo.discounts[id].Value)

	require.NoError(t, svc.ClearDiscount(context.Background(), id))
	require.Nil(t, repo.discounts[id])
}

func TestExportJewels(t *testing.T) {
	j := jewel("collier", 60, 0)
	j.Sizes = []SizeStock{{Size: "40cm", Stock: 1}, {Size: "45cm", Stock: 2}}
	svc := newTestService(newMemRepo(j))

	var buf bytes.Buffer
	require.NoError(t, svc.ExportJewels(context.Background(), &buf))

	book, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, book.Sheets, 1)
	sheet := book.Sheets[0]
	require.Len(t, sheet.Rows, 2)
	require.Equal(t, "Nom", sheet.Rows[0].Cells[1].String())
	require.Equal(t, "collier", sheet.Rows[1].Cells[1].String())
	require.Equal(t, "40cm:1, 45cm:2", sheet.Rows[1].Cells[9].String())
}

func TestParseSizes(t *testing.T) {
	sizes, err := ParseSizes("52:3, 54:2\n56")
	require.NoError(t, err)
	require.Equal(t, []SizeStock{{"52", 3}, {"54", 2}, {"56", 0}}, sizes)

	_, err = ParseSizes("52:x")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestFilterFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("min_price", "10,50")
	q.Set("max_price", "abc")
	q.Set("in_stock", "on")
	q.Set("sort", "price_desc")
	q.Set("page", "3")
	q.Set("q", "  perle ")

	f := FilterFromQuery(q)
	require.NotNil(t, f.MinPrice)
	require.Equal(t, 10.5, *f.MinPrice)
	require.Nil(t, f.MaxPrice)
	require.True(t, f.InStock)
	require.Equal(t, SortPriceDesc, f.Sort)
	require.Equal(t, 3, f.Page)
	require.Equal(t, "perle", f.Search)

	require.Equal(t, SortNewest, FilterFromQuery(url.Values{"sort": {"bogus"}}).Sort)
}

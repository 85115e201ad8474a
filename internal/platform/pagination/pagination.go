package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage is used when the caller does not ask for a page size.
	DefaultPerPage = 12
	// MaxPerPage caps per_page to keep listing queries bounded.
	MaxPerPage = 96
)

// Page is the pagination window for a listing of Total items.
type Page struct {
	Number     int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	Offset     int  `json:"-"`
	Limit      int  `json:"-"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
	Prev       int  `json:"prev,omitempty"`
	Next       int  `json:"next,omitempty"`
}

// New computes the window. Pages are 1-based; out of range pages are clamped.
func New(page, perPage, total int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if total < 0 {
		total = 0
	}
	if page < 1 {
		page = 1
	}

	totalPages := (total + perPage - 1) / perPage
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	p := Page{
		Number:     page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		Offset:     (page - 1) * perPage,
		Limit:      perPage,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if p.HasPrev {
		p.Prev = page - 1
	}
	if p.HasNext {
		p.Next = page + 1
	}
	return p
}

// Numbers lists page numbers for rendering a pager.
func (p Page) Numbers() []int {
	out := make([]int, 0, p.TotalPages)
	for i := 1; i <= p.TotalPages; i++ {
		out = append(out, i)
	}
	return out
}

// FromRequest reads ?page= and ?per_page= from the query string.
// It returns the raw values; clamping against the total happens in New.
func FromRequest(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page = parsePositive(q.Get("page"), 1)
	perPage = parsePositive(q.Get("per_page"), defaultPerPage)
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func parsePositive(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
)

// SizeStock is the stock held for one size of a jewel (ring size, chain length...).
type SizeStock struct {
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// Jewel is a product of the shop catalog. When Sizes is non-empty, Stock holds
// the sum of the per-size stocks.
type Jewel struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description,omitempty"`
	CategoryID   *uuid.UUID        `json:"category_id,omitempty"`
	CategorySlug string            `json:"category_slug,omitempty"`
	Material     string            `json:"material,omitempty"`
	BasePrice    float64           `json:"base_price"`
	Currency     string            `json:"currency"`
	Stock        int               `json:"stock"`
	Sizes        []SizeStock       `json:"sizes,omitempty"`
	Discount     *pricing.Discount `json:"discount,omitempty"`
	SalesCount   int               `json:"sales_count"`
	ViewCount    int               `json:"view_count"`
	MainImageURL string            `json:"main_image_url,omitempty"`
	IsActive     bool              `json:"is_active"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// HasSizes reports whether stock is tracked per size.
func (j *Jewel) HasSizes() bool { return len(j.Sizes) > 0 }

// Available returns the sellable quantity for size. Jewels without sizes only
// accept the empty size; unknown sizes have no stock.
func (j *Jewel) Available(size string) int {
	if !j.HasSizes() {
		if size != "" {
			return 0
		}
		return j.Stock
	}
	for _, s := range j.Sizes {
		if s.Size == size {
			return s.Stock
		}
	}
	return 0
}

// TotalStock sums per-size stock, or returns the plain stock.
func (j *Jewel) TotalStock() int {
	if !j.HasSizes() {
		return j.Stock
	}
	n := 0
	for _, s := range j.Sizes {
		n += s.Stock
	}
	return n
}

// JewelView is a jewel with its price and badge resolved at a given instant.
type JewelView struct {
	*Jewel
	Price pricing.Price  `json:"price"`
	Badge *pricing.Badge `json:"badge,omitempty"`
}

// Sort orders a listing.
type Sort string

const (
	SortNewest      Sort = "newest"
	SortPriceAsc    Sort = "price_asc"
	SortPriceDesc   Sort = "price_desc"
	SortPopular     Sort = "popular"
	SortBestSellers Sort = "best_sellers"
)

// SortOption is a labelled sort for the listing dropdown.
type SortOption struct {
	Value Sort
	Label string
}

var SortOptions = []SortOption{
	{SortNewest, "Nouveautés"},
	{SortPriceAsc, "Prix croissant"},
	{SortPriceDesc, "Prix décroissant"},
	{SortPopular, "Les plus vus"},
	{SortBestSellers, "Meilleures ventes"},
}

// ParseSort falls back to SortNewest for unknown values.
func ParseSort(s string) Sort {
	for _, o := range SortOptions {
		if string(o.Value) == s {
			return o.Value
		}
	}
	return SortNewest
}

// ListFilter narrows a listing. Price bounds apply to the discounted price.
type ListFilter struct {
	CategorySlug    string   `json:"category,omitempty"`
	Material        string   `json:"material,omitempty"`
	MinPrice        *float64 `json:"min_price,omitempty"`
	MaxPrice        *float64 `json:"max_price,omitempty"`
	InStock         bool     `json:"in_stock,omitempty"`
	Search          string   `json:"q,omitempty"`
	Sort            Sort     `json:"sort"`
	Page            int      `json:"page"`
	PerPage         int      `json:"per_page"`
	IncludeInactive bool     `json:"-"`
}

// SaveJewelRequest holds the admin form for creating or editing a jewel.
type SaveJewelRequest struct {
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	CategoryID  string      `json:"category_id"`
	Material    string      `json:"material"`
	BasePrice   float64     `json:"base_price"`
	Stock       int         `json:"stock"`
	Sizes       []SizeStock `json:"sizes"`
	IsActive    bool        `json:"is_active"`
}

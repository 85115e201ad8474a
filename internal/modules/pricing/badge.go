package pricing

import "time"

// BadgeKind identifies a display badge.
type BadgeKind string

const (
	BadgePromo      BadgeKind = "promo"
	BadgeLastChance BadgeKind = "last-chance"
	BadgeBestSeller BadgeKind = "best-seller"
	BadgeNew        BadgeKind = "new"
	BadgePopular    BadgeKind = "popular"
)

var badgeLabels = map[BadgeKind]string{
	BadgePromo:      "Promo",
	BadgeLastChance: "Dernière chance",
	BadgeBestSeller: "Best-seller",
	BadgeNew:        "Nouveau",
	BadgePopular:    "Populaire",
}

// Badge is the single UI label shown on a jewel card.
type Badge struct {
	Kind  BadgeKind `json:"kind"`
	Label string    `json:"label"`
}

// BadgeRules holds the thresholds for the non-promotional badges.
// A zero or negative threshold disables the corresponding badge.
type BadgeRules struct {
	LowStockThreshold  int `yaml:"low_stock_threshold" json:"low_stock_threshold"`
	BestSellerMinSales int `yaml:"best_seller_min_sales" json:"best_seller_min_sales"`
	NewForDays         int `yaml:"new_for_days" json:"new_for_days"`
	PopularMinViews    int `yaml:"popular_min_views" json:"popular_min_views"`
}

// DefaultBadgeRules mirrors the storefront's historical thresholds.
func DefaultBadgeRules() BadgeRules {
	return BadgeRules{
		LowStockThreshold:  3,
		BestSellerMinSales: 20,
		NewForDays:         30,
		PopularMinViews:    200,
	}
}

// BadgeInput is the subset of jewel state badges are derived from.
type BadgeInput struct {
	Price     Price
	Stock     int
	Sales     int
	Views     int
	CreatedAt time.Time
}

// SelectBadge picks at most one badge in the order
// promo > last-chance > best-seller > new > popular.
func SelectBadge(in BadgeInput, rules BadgeRules, now time.Time) *Badge {
	switch {
	case in.Price.DiscountActive:
		return newBadge(BadgePromo)
	case rules.LowStockThreshold > 0 && in.Stock > 0 && in.Stock <= rules.LowStockThreshold:
		return newBadge(BadgeLastChance)
	case rules.BestSellerMinSales > 0 && in.Sales >= rules.BestSellerMinSales:
		return newBadge(BadgeBestSeller)
	case rules.NewForDays > 0 && !in.CreatedAt.IsZero() &&
		now.Sub(in.CreatedAt) <= time.Duration(rules.NewForDays)*24*time.Hour:
		return newBadge(BadgeNew)
	case rules.PopularMinViews > 0 && in.Views >= rules.PopularMinViews:
		return newBadge(BadgePopular)
	}
	return nil
}

func newBadge(kind BadgeKind) *Badge {
	return &Badge{Kind: kind, Label: badgeLabels[kind]}
}

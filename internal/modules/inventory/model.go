package inventory

import "github.com/google/uuid"

// Line is a quantity of one jewel size taken from (or returned to) stock.
// Size is empty for jewels that are not sized.
type Line struct {
	JewelID  uuid.UUID `json:"jewel_id"`
	Size     string    `json:"size"`
	Quantity int       `json:"quantity"`
}

// LowStockItem is one row of the low stock report.
type LowStockItem struct {
	JewelID uuid.UUID `json:"jewel_id"`
	Name    string    `json:"name"`
	Slug    string    `json:"slug"`
	Size    string    `json:"size,omitempty"`
	Stock   int       `json:"stock"`
}

// AdjustStockRequest sets the absolute stock of a jewel or one of its sizes.
type AdjustStockRequest struct {
	JewelID  string `json:"jewel_id"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

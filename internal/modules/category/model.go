package category

import (
	"time"

	"github.com/google/uuid"
)

// Category groups jewels on the storefront (rings, necklaces, bracelets...).
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SaveCategoryRequest holds the admin form for creating or editing a category.
type SaveCategoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	ImageURL    string `json:"image_url"`
}

package media

import (
	"time"

	"github.com/google/uuid"
)

// Image is an uploaded picture attached to a jewel or a category.
type Image struct {
	ID          uuid.UUID  `json:"id"`
	JewelID     *uuid.UUID `json:"jewel_id,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Filename    string     `json:"filename"`
	ObjectKey   string     `json:"-"`
	URL         string     `json:"url"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Owner names what an image belongs to. At most one field is set; neither
// means a free-standing image for use in emails.
type Owner struct {
	JewelID    *uuid.UUID
	CategoryID *uuid.UUID
}

func (o Owner) valid() bool { return o.JewelID == nil || o.CategoryID == nil }

// prefix is the object key folder for the owner.
func (o Owner) prefix() string {
	switch {
	case o.JewelID != nil:
		return "jewels/" + o.JewelID.String()
	case o.CategoryID != nil:
		return "categories/" + o.CategoryID.String()
	default:
		return "library"
	}
}

// allowedTypes maps accepted sniffed content types to file extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

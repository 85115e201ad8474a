package marketing

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is a newsletter recipient. Token identifies the subscriber in
// unsubscribe links.
type Subscriber struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Token      string    `json:"-"`
	Subscribed bool      `json:"subscribed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CampaignStatus is the lifecycle of a campaign: draft, then sending, then sent.
type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignSending CampaignStatus = "sending"
	CampaignSent    CampaignStatus = "sent"
)

// Campaign is a newsletter email written in Markdown.
type Campaign struct {
	ID             uuid.UUID      `json:"id"`
	Subject        string         `json:"subject"`
	BodyMarkdown   string         `json:"body_markdown"`
	Status         CampaignStatus `json:"status"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	RecipientCount int            `json:"recipient_count"`
	FailedCount    int            `json:"failed_count"`
	PendingCount   int            `json:"pending_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsDraft reports whether the campaign can still be edited and sent.
func (c *Campaign) IsDraft() bool { return c.Status == CampaignDraft }

// Saved reports whether the campaign has been stored yet.
func (c *Campaign) Saved() bool { return c.ID != uuid.Nil }

// SaveCampaignRequest is the email editor payload.
type SaveCampaignRequest struct {
	Subject      string `json:"subject"`
	BodyMarkdown string `json:"body_markdown"`
}

// Message is one rendered email ready for a Mailer.
type Message struct {
	To             string
	Subject        string
	HTML           string
	UnsubscribeURL string
}

// SendResult counts the outcome of a campaign send.
type SendResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	// Pending recipients were never attempted because the send was interrupted.
	Pending int `json:"pending"`
}

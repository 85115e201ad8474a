package marketing

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid input")
	ErrAlreadySent  = errors.New("campaign was already sent")
	ErrNoRecipients = errors.New("no subscribed recipients")
)

// Repository stores subscribers and campaigns.
type Repository interface {
	// UpsertSubscriber subscribes email, reactivating it when it had
	// unsubscribed, and returns the stored row.
	UpsertSubscriber(ctx context.Context, email, token string) (*Subscriber, error)
	GetSubscriberByToken(ctx context.Context, token string) (*Subscriber, error)
	SetSubscribed(ctx context.Context, token string, subscribed bool) error
	ListSubscribed(ctx context.Context) ([]*Subscriber, error)
	CountSubscribed(ctx context.Context) (int, error)

	CreateCampaign(ctx context.Context, c *Campaign) error
	UpdateCampaign(ctx context.Context, c *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	// LatestDraft returns the most recently edited draft, or ErrNotFound.
	LatestDraft(ctx context.Context) (*Campaign, error)
	ListCampaigns(ctx context.Context, limit int) ([]*Campaign, error)
	// MarkSending moves a draft to sending. It returns ErrAlreadySent when
	// the campaign is no longer a draft.
	MarkSending(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string, res SendResult, at time.Time) error
}

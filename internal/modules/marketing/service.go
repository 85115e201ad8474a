package marketing

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/platform/requestctx"
	"github.com/georgemunganga/bijoux-shop/internal/platform/textutil"
)

const maxSubjectLength = 200

// Service defines newsletter subscriptions and campaign editing and sending.
type Service interface {
	// Subscribe is idempotent: an existing address keeps its token and is
	// reactivated if it had unsubscribed.
	Subscribe(ctx context.Context, email string) (*Subscriber, error)
	Unsubscribe(ctx context.Context, token string) (*Subscriber, error)
	SubscriberCount(ctx context.Context) (int, error)

	// CurrentDraft returns the draft open in the editor, or an unsaved blank
	// campaign when there is none.
	CurrentDraft(ctx context.Context) (*Campaign, error)
	// SaveDraft creates a draft when id is empty, otherwise updates it.
	SaveDraft(ctx context.Context, id string, req SaveCampaignRequest) (*Campaign, error)
	// Preview renders req as a subscriber would receive it.
	Preview(ctx context.Context, req SaveCampaignRequest) (template.HTML, error)
	Send(ctx context.Context, id string) (*Campaign, error)
	ListCampaigns(ctx context.Context) ([]*Campaign, error)
}

// DefaultSendTimeout bounds one campaign fan-out.
const DefaultSendTimeout = time.Hour

type service struct {
	repo        Repository
	render      *EmailRenderer
	sender      *Sender
	now         func() time.Time
	sendTimeout time.Duration
}

func NewService(repo Repository, render *EmailRenderer, sender *Sender) Service {
	return &service{repo: repo, render: render, sender: sender, now: time.Now, sendTimeout: DefaultSendTimeout}
}

func (s *service) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	email = textutil.NormalizeEmail(email)
	if !textutil.ValidEmail(email) {
		return nil, fmt.Errorf("%w: email", ErrInvalid)
	}
	return s.repo.UpsertSubscriber(ctx, email, uuid.NewString())
}

func (s *service) Unsubscribe(ctx context.Context, token string) (*Subscriber, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	sub, err := s.repo.GetSubscriberByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !sub.Subscribed {
		return sub, nil
	}
	if err := s.repo.SetSubscribed(ctx, token, false); err != nil {
		return nil, err
	}
	sub.Subscribed = false
	return sub, nil
}

func (s *service) SubscriberCount(ctx context.Context) (int, error) {
	return s.repo.CountSubscribed(ctx)
}

func (s *service) CurrentDraft(ctx context.Context) (*Campaign, error) {
	c, err := s.repo.LatestDraft(ctx)
	if errors.Is(err, ErrNotFound) {
		return &Campaign{Status: CampaignDraft}, nil
	}
	return c, err
}

func validateCampaign(req SaveCampaignRequest) (SaveCampaignRequest, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.BodyMarkdown = strings.TrimSpace(strings.ReplaceAll(req.BodyMarkdown, "\r\n", "\n"))
	if req.Subject == "" {
		return req, fmt.Errorf("%w: subject is required", ErrInvalid)
	}
	if len([]rune(req.Subject)) > maxSubjectLength {
		return req, fmt.Errorf("%w: subject is too long", ErrInvalid)
	}
	if req.BodyMarkdown == "" {
		return req, fmt.Errorf("%w: body is required", ErrInvalid)
	}
	return req, nil
}

func (s *service) SaveDraft(ctx context.Context, id string, req SaveCampaignRequest) (*Campaign, error) {
	req, err := validateCampaign(req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		c := &Campaign{ID: uuid.New(), Subject: req.Subject, BodyMarkdown: req.BodyMarkdown, Status: CampaignDraft}
		if err := s.repo.CreateCampaign(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsDraft() {
		return nil, ErrAlreadySent
	}
	c.Subject, c.BodyMarkdown = req.Subject, req.BodyMarkdown
	if err := s.repo.UpdateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) Preview(_ context.Context, req SaveCampaignRequest) (template.HTML, error) {
	c := &Campaign{Subject: strings.TrimSpace(req.Subject), BodyMarkdown: req.BodyMarkdown}
	msg, err := s.render.Render(c, &Subscriber{Email: "apercu@example.com", Token: "apercu"})
	if err != nil {
		return "", err
	}
	return template.HTML(msg.HTML), nil
}

func (s *service) Send(ctx context.Context, id string) (*Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsDraft() {
		return nil, ErrAlreadySent
	}
	recipients, err := s.repo.ListSubscribed(ctx)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if err := s.repo.MarkSending(ctx, c.ID.String()); err != nil {
		return nil, err
	}

	// The fan-out is detached from the caller: a closed browser tab does not
	// stop it, only sendTimeout does.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout)
	defer cancel()
	res, sendErr := s.sender.Send(sendCtx, c, recipients)
	at := s.now()
	// Recorded even when interrupted, so the campaign is never sent twice;
	// PendingCount shows who was not reached.
	if err := s.repo.MarkSent(context.WithoutCancel(ctx), c.ID.String(), res, at); err != nil {
		return nil, err
	}
	c.Status = CampaignSent
	c.SentAt = &at
	c.RecipientCount = res.Sent + res.Failed
	c.FailedCount = res.Failed
	c.PendingCount = res.Pending
	requestctx.Logger(ctx).Info("campaign sent",
		zap.String("campaign_id", c.ID.String()),
		zap.Int("recipients", c.RecipientCount),
		zap.Int("failed", c.FailedCount),
		zap.Int("pending", c.PendingCount))
	if sendErr != nil {
		return c, fmt.Errorf("campaign interrupted: %w", sendErr)
	}
	return c, nil
}

func (s *service) ListCampaigns(ctx context.Context) ([]*Campaign, error) {
	return s.repo.ListCampaigns(ctx, 20)
}

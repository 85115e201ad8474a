package marketing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const subscriberCols = `id, email, token, subscribed, created_at, updated_at`

func scanSubscriber(row interface{ Scan(...interface{}) error }) (*Subscriber, error) {
	s := &Subscriber{}
	if err := row.Scan(&s.ID, &s.Email, &s.Token, &s.Subscribed, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// UpsertSubscriber keeps the existing token so links in past emails stay valid.
func (r *postgresRepo) UpsertSubscriber(ctx context.Context, email, token string) (*Subscriber, error) {
	return scanSubscriber(r.db.QueryRowContext(ctx, `
		INSERT INTO subscribers (id, email, token, subscribed)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (email) DO UPDATE
		   SET subscribed = TRUE,
		       updated_at = CASE WHEN subscribers.subscribed THEN subscribers.updated_at ELSE NOW() END
		RETURNING `+subscriberCols, uuid.New(), email, token))
}

func (r *postgresRepo) GetSubscriberByToken(ctx context.Context, token string) (*Subscriber, error) {
	return scanSubscriber(r.db.QueryRowContext(ctx,
		`SELECT `+subscriberCols+` FROM subscribers WHERE token=$1`, token))
}

func (r *postgresRepo) SetSubscribed(ctx context.Context, token string, subscribed bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscribers SET subscribed=$1, updated_at=NOW() WHERE token=$2`, subscribed, token)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ListSubscribed(ctx context.Context) ([]*Subscriber, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriberCols+` FROM subscribers WHERE subscribed ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *postgresRepo) CountSubscribed(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers WHERE subscribed`).Scan(&n)
	return n, err
}

const campaignCols = `id, subject, body_markdown, status, sent_at, recipient_count, failed_count, pending_count, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*Campaign, error) {
	c := &Campaign{}
	var sentAt sql.NullTime
	err := row.Scan(&c.ID, &c.Subject, &c.BodyMarkdown, &c.Status, &sentAt,
		&c.RecipientCount, &c.FailedCount, &c.PendingCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sentAt.Valid {
		c.SentAt = &sentAt.Time
	}
	return c, nil
}

func (r *postgresRepo) CreateCampaign(ctx context.Context, c *Campaign) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO campaigns (id, subject, body_markdown, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		c.ID, c.Subject, c.BodyMarkdown, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// UpdateCampaign only touches drafts.
func (r *postgresRepo) UpdateCampaign(ctx context.Context, c *Campaign) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE campaigns SET subject=$1, body_markdown=$2, updated_at=NOW()
		WHERE id=$3 AND status=$4
		RETURNING updated_at`,
		c.Subject, c.BodyMarkdown, c.ID, CampaignDraft,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlreadySent
	}
	return err
}

func (r *postgresRepo) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return scanCampaign(r.db.QueryRowContext(ctx, `SELECT `+campaignCols+` FROM campaigns WHERE id=$1`, uid))
}

func (r *postgresRepo) LatestDraft(ctx context.Context) (*Campaign, error) {
	return scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignCols+` FROM campaigns WHERE status=$1
		ORDER BY updated_at DESC LIMIT 1`, CampaignDraft))
}

func (r *postgresRepo) ListCampaigns(ctx context.Context, limit int) ([]*Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+campaignCols+` FROM campaigns ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkSending(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		CampaignSending, id, CampaignDraft)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadySent
	}
	return nil
}

func (r *postgresRepo) MarkSent(ctx context.Context, id string, res SendResult, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status=$1, sent_at=$2, recipient_count=$3, failed_count=$4, pending_count=$5, updated_at=NOW()
		WHERE id=$6`,
		CampaignSent, at, res.Sent+res.Failed, res.Failed, res.Pending, id)
	return err
}

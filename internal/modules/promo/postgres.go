package promo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
	"github.com/georgemunganga/bijoux-shop/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectPromo = `SELECT id,code,discount_type,value,min_order_amount,usage_limit,usage_count,
	starts_at,expires_at,is_active,created_at,updated_at FROM promo_codes`

func scanPromo(scan func(...interface{}) error) (*PromoCode, error) {
	p := &PromoCode{}
	var (
		typ              string
		limit            sql.NullInt64
		startsAt, expiry sql.NullTime
	)
	err := scan(&p.ID, &p.Code, &typ, &p.Value, &p.MinOrderAmount, &limit, &p.UsageCount,
		&startsAt, &expiry, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Type = pricing.ParseDiscountType(typ)
	if limit.Valid {
		n := int(limit.Int64)
		p.UsageLimit = &n
	}
	if startsAt.Valid {
		t := startsAt.Time
		p.StartsAt = &t
	}
	if expiry.Valid {
		t := expiry.Time
		p.ExpiresAt = &t
	}
	return p, nil
}

func (r *postgresRepo) Create(ctx context.Context, p *PromoCode) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO promo_codes (id,code,discount_type,value,min_order_amount,usage_limit,starts_at,expires_at,is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.Code, string(p.Type), p.Value, p.MinOrderAmount, p.UsageLimit,
		p.StartsAt, p.ExpiresAt, p.IsActive).Scan(&p.CreatedAt, &p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrCodeTaken
	}
	return err
}

func (r *postgresRepo) Update(ctx context.Context, p *PromoCode) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE promo_codes SET code=$1, discount_type=$2, value=$3, min_order_amount=$4,
		       usage_limit=$5, starts_at=$6, expires_at=$7, is_active=$8, updated_at=NOW()
		WHERE id=$9`,
		p.Code, string(p.Type), p.Value, p.MinOrderAmount, p.UsageLimit,
		p.StartsAt, p.ExpiresAt, p.IsActive, p.ID)
	if database.IsUniqueViolation(err) {
		return ErrCodeTaken
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromoNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrPromoNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM promo_codes WHERE id=$1`, uid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromoNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*PromoCode, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrPromoNotFound
	}
	return scanPromo(r.db.QueryRowContext(ctx, selectPromo+` WHERE id=$1`, uid).Scan)
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*PromoCode, error) {
	return scanPromo(r.db.QueryRowContext(ctx, selectPromo+` WHERE code=$1`, code).Scan)
}

func (r *postgresRepo) List(ctx context.Context) ([]*PromoCode, error) {
	rows, err := r.db.QueryContext(ctx, selectPromo+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PromoCode
	for rows.Next() {
		p, err := scanPromo(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postgresRepo) RedeemTx(ctx context.Context, tx *sql.Tx, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrPromoNotFound
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE promo_codes SET usage_count = usage_count + 1, updated_at=NOW()
		WHERE id=$1 AND is_active AND (usage_limit IS NULL OR usage_count < usage_limit)`, uid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromoExhausted
	}
	return nil
}

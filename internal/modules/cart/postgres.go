package cart

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Items(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT jewel_id, size, quantity FROM cart_items
		WHERE user_id=$1 ORDER BY added_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.JewelID, &it.Size, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Replace rewrites the cart in one transaction. Surviving lines keep their
// added_at so the display order is stable.
func (r *postgresRepo) Replace(ctx context.Context, userID uuid.UUID, items []Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	keep := make([]string, 0, len(items))
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, jewel_id, size, quantity) VALUES ($1,$2,$3,$4)
			ON CONFLICT (user_id, jewel_id, size) DO UPDATE SET quantity = EXCLUDED.quantity`,
			userID, it.JewelID, it.Size, it.Quantity); err != nil {
			return err
		}
		keep = append(keep, it.JewelID.String()+"|"+it.Size)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE user_id=$1 AND NOT (jewel_id::text || '|' || size = ANY($2::text[]))`,
		userID, pq.Array(keep)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

func (r *postgresRepo) ClearTx(ctx context.Context, tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

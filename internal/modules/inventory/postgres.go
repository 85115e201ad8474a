package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// ReserveTx decrements stock for every line and bumps sales counts. Each
// UPDATE is guarded by the remaining stock so concurrent checkouts cannot
// oversell; a line that matches no row fails the whole reservation.
func (r *postgresRepo) ReserveTx(ctx context.Context, tx *sql.Tx, lines []Line) error {
	for _, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: quantity %d", ErrInvalid, l.Quantity)
		}
		if l.Size != "" {
			res, err := tx.ExecContext(ctx, `
				UPDATE jewel_sizes SET stock = stock - $3
				WHERE jewel_id=$1 AND size=$2 AND stock >= $3`, l.JewelID, l.Size, l.Quantity)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: jewel %s size %s", ErrInsufficientStock, l.JewelID, l.Size)
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE jewels SET stock = stock - $2, sales_count = sales_count + $2, updated_at=NOW()
			WHERE id=$1 AND is_active AND stock >= $2`, l.JewelID, l.Quantity)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: jewel %s", ErrInsufficientStock, l.JewelID)
		}
	}
	return nil
}

// ReleaseTx puts reserved quantities back, used when an order is cancelled.
func (r *postgresRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, lines []Line) error {
	for _, l := range lines {
		if l.Size != "" {
			if _, err := tx.ExecContext(ctx, `
				UPDATE jewel_sizes SET stock = stock + $3 WHERE jewel_id=$1 AND size=$2`,
				l.JewelID, l.Size, l.Quantity); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE jewels SET stock = stock + $2, sales_count = GREATEST(sales_count - $2, 0), updated_at=NOW()
			WHERE id=$1`, l.JewelID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresRepo) SetStock(ctx context.Context, req AdjustStockRequest) error {
	uid, err := uuid.Parse(req.JewelID)
	if err != nil {
		return ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var sized bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM jewel_sizes WHERE jewel_id=$1)`, uid).Scan(&sized); err != nil {
		return err
	}

	var res sql.Result
	switch {
	case sized && req.Size == "":
		return fmt.Errorf("%w: size required", ErrInvalid)
	case sized:
		res, err = tx.ExecContext(ctx,
			`UPDATE jewel_sizes SET stock=$3 WHERE jewel_id=$1 AND size=$2`, uid, req.Size, req.Quantity)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrNotFound
			}
			res, err = tx.ExecContext(ctx, `
				UPDATE jewels SET stock = (SELECT COALESCE(SUM(stock), 0) FROM jewel_sizes WHERE jewel_id=$1),
				       updated_at=NOW()
				WHERE id=$1`, uid)
		}
	case req.Size != "":
		return ErrNotFound
	default:
		res, err = tx.ExecContext(ctx, `UPDATE jewels SET stock=$2, updated_at=NOW() WHERE id=$1`, uid, req.Quantity)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (r *postgresRepo) LowStock(ctx context.Context, threshold int) ([]*LowStockItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT j.id, j.name, j.slug, s.size, s.stock
		FROM jewel_sizes s JOIN jewels j ON j.id = s.jewel_id
		WHERE j.is_active AND s.stock <= $1
		UNION ALL
		SELECT j.id, j.name, j.slug, '', j.stock
		FROM jewels j
		WHERE j.is_active AND j.stock <= $1
		  AND NOT EXISTS (SELECT 1 FROM jewel_sizes s WHERE s.jewel_id = j.id)
		ORDER BY 5 ASC, 2 ASC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LowStockItem
	for rows.Next() {
		it := &LowStockItem{}
		if err := rows.Scan(&it.JewelID, &it.Name, &it.Slug, &it.Size, &it.Stock); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

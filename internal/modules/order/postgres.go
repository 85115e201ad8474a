package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectOrder = `
	SELECT id, user_id, order_number, status, subtotal, savings, promo_code,
	       promo_discount, shipping_fee, total, currency, shipping_address,
	       created_at, updated_at
	FROM orders`

// Create inserts the order and all its items inside a single transaction.
func (r *postgresRepo) Create(ctx context.Context, o *Order, fn TxFunc) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders
		  (id, user_id, order_number, status, subtotal, savings, promo_code,
		   promo_discount, shipping_fee, total, currency, shipping_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.OrderNumber, o.Status, o.Subtotal, o.Savings, o.PromoCode,
		o.PromoDiscount, o.ShippingFee, o.Total, o.Currency, addr,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		item.OrderID = o.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items
			  (id, order_id, jewel_id, jewel_name, size, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING created_at`,
			item.ID, o.ID, item.JewelID, item.JewelName, item.Size,
			item.Quantity, item.UnitPrice, item.LineTotal,
		).Scan(&item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if fn != nil {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.getOne(ctx, selectOrder+` WHERE id=$1`, id)
}

func (r *postgresRepo) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return r.getOne(ctx, selectOrder+` WHERE order_number=$1`, number)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return r.queryOrders(ctx, selectOrder+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepo) List(ctx context.Context, status Status, limit, offset int) ([]*Order, error) {
	if status == "" {
		return r.queryOrders(ctx, selectOrder+` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	}
	return r.queryOrders(ctx, selectOrder+` WHERE status=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset)
}

func (r *postgresRepo) Count(ctx context.Context, status Status) (int, error) {
	var n int
	var err error
	if status == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE status=$1`, status).Scan(&n)
	}
	return n, err
}

func (r *postgresRepo) Transition(ctx context.Context, id uuid.UUID, from, to Status, fn TxFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`,
		to, id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusChanged
	}
	if fn != nil {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *postgresRepo) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	st := &Stats{ByStatus: make(map[Status]int)}
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		st.ByStatus[s] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0),
		       COUNT(*) FILTER (WHERE created_at >= $1),
		       COALESCE(SUM(total) FILTER (WHERE created_at >= $1), 0)
		FROM orders WHERE status <> $2`, since, StatusCancelled,
	).Scan(&st.Revenue, &st.OrdersToday, &st.RevenueToday)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (*Order, error) {
	o := &Order{}
	var addr []byte
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.Subtotal, &o.Savings,
		&o.PromoCode, &o.PromoDiscount, &o.ShippingFee, &o.Total, &o.Currency, &addr,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("decode shipping address of %s: %w", o.OrderNumber, err)
		}
	}
	return o, nil
}

func (r *postgresRepo) getOne(ctx context.Context, query string, arg interface{}) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, r.loadItems(ctx, orders)
}

// loadItems fills the items of every order with one query.
func (r *postgresRepo) loadItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID.String())
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, jewel_id, jewel_name, size, quantity, unit_price, line_total, created_at
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY created_at, id`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		item := &OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.JewelID, &item.JewelName, &item.Size,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.CreatedAt); err != nil {
			return err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

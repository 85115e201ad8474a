package media

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const imageCols = `id, jewel_id, category_id, filename, object_key, url, content_type, size_bytes, position, created_at`

func scanImage(row interface{ Scan(...interface{}) error }) (*Image, error) {
	img := &Image{}
	var jewelID, categoryID uuid.NullUUID
	err := row.Scan(&img.ID, &jewelID, &categoryID, &img.Filename, &img.ObjectKey, &img.URL,
		&img.ContentType, &img.SizeBytes, &img.Position, &img.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if jewelID.Valid {
		img.JewelID = &jewelID.UUID
	}
	if categoryID.Valid {
		img.CategoryID = &categoryID.UUID
	}
	return img, nil
}

func (r *postgresRepo) Create(ctx context.Context, img *Image) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO images (id, jewel_id, category_id, filename, object_key, url, content_type, size_bytes, position)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		img.ID, img.JewelID, img.CategoryID, img.Filename, img.ObjectKey, img.URL,
		img.ContentType, img.SizeBytes, img.Position,
	).Scan(&img.CreatedAt)
}

func (r *postgresRepo) Get(ctx context.Context, id uuid.UUID) (*Image, error) {
	return scanImage(r.db.QueryRowContext(ctx, `SELECT `+imageCols+` FROM images WHERE id=$1`, id))
}

// ownerClause returns the WHERE clause selecting owner's images with $1.
func ownerClause(owner Owner) (string, []interface{}) {
	switch {
	case owner.JewelID != nil:
		return `jewel_id=$1`, []interface{}{*owner.JewelID}
	case owner.CategoryID != nil:
		return `category_id=$1`, []interface{}{*owner.CategoryID}
	default:
		return `jewel_id IS NULL AND category_id IS NULL`, nil
	}
}

func (r *postgresRepo) List(ctx context.Context, owner Owner) ([]*Image, error) {
	where, args := ownerClause(owner)
	return r.query(ctx, `SELECT `+imageCols+` FROM images WHERE `+where+` ORDER BY position, created_at`, args...)
}

func (r *postgresRepo) Recent(ctx context.Context, limit int) ([]*Image, error) {
	return r.query(ctx, `SELECT `+imageCols+` FROM images ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *postgresRepo) NextPosition(ctx context.Context, owner Owner) (int, error) {
	where, args := ownerClause(owner)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position)+1, 0) FROM images WHERE `+where, args...).Scan(&n)
	return n, err
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...interface{}) ([]*Image, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

package category

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/georgemunganga/bijoux-shop/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectCategory = `SELECT id,name,slug,description,position,image_url,created_at,updated_at FROM categories`

func scanCategory(scan func(...interface{}) error) (*Category, error) {
	c := &Category{}
	err := scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Position, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *postgresRepo) Create(ctx context.Context, c *Category) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO categories (id,name,slug,description,position,image_url)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Slug, c.Description, c.Position, c.ImageURL).Scan(&c.CreatedAt, &c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

func (r *postgresRepo) Update(ctx context.Context, c *Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name=$1, slug=$2, description=$3, position=$4, image_url=$5, updated_at=NOW()
		WHERE id=$6`,
		c.Name, c.Slug, c.Description, c.Position, c.ImageURL, c.ID)
	if database.IsUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id=$1`, uid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Category, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return scanCategory(r.db.QueryRowContext(ctx, selectCategory+` WHERE id=$1`, uid).Scan)
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx, selectCategory+` WHERE slug=$1`, slug).Scan)
}

func (r *postgresRepo) List(ctx context.Context) ([]*Category, error) {
	rows, err := r.db.QueryContext(ctx, selectCategory+` ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) CountJewels(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jewels WHERE category_id=$1`, id).Scan(&n)
	return n, err
}

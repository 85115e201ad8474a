package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/georgemunganga/bijoux-shop/internal/modules/pricing"
	"github.com/georgemunganga/bijoux-shop/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectJewel = `
	SELECT j.id, j.name, j.slug, j.description, j.category_id, COALESCE(c.slug, ''), j.material,
	       j.base_price, j.currency, j.stock, j.discount_type, j.discount_value,
	       j.discount_starts_at, j.discount_ends_at, j.sales_count, j.view_count,
	       j.main_image_url, j.is_active, j.created_at, j.updated_at
	FROM jewels j LEFT JOIN categories c ON c.id = j.category_id`

// effectivePrice mirrors pricing.Compute in SQL, rounded to cents. at is the
// placeholder bound to the evaluation instant.
func effectivePrice(at string) string {
	return fmt.Sprintf(`(CASE WHEN COALESCE(j.discount_value, 0) > 0
	AND (j.discount_starts_at IS NULL OR j.discount_starts_at <= %[1]s)
	AND (j.discount_ends_at IS NULL OR j.discount_ends_at >= %[1]s)
	THEN ROUND(GREATEST(0, CASE WHEN j.discount_type = 'fixed'
		THEN j.base_price - j.discount_value
		ELSE j.base_price - j.base_price * LEAST(j.discount_value, 100) / 100 END), 2)
	ELSE j.base_price END)`, at)
}

func scanJewel(scan func(...interface{}) error) (*Jewel, error) {
	j := &Jewel{}
	var (
		categoryID     uuid.NullUUID
		discountType   sql.NullString
		discountValue  sql.NullFloat64
		startsAt, ends sql.NullTime
	)
	err := scan(&j.ID, &j.Name, &j.Slug, &j.Description, &categoryID, &j.CategorySlug, &j.Material,
		&j.BasePrice, &j.Currency, &j.Stock, &discountType, &discountValue,
		&startsAt, &ends, &j.SalesCount, &j.ViewCount,
		&j.MainImageURL, &j.IsActive, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		id := categoryID.UUID
		j.CategoryID = &id
	}
	if discountType.Valid && discountValue.Valid && discountValue.Float64 > 0 {
		d := &pricing.Discount{Type: pricing.ParseDiscountType(discountType.String), Value: discountValue.Float64}
		if startsAt.Valid {
			t := startsAt.Time
			d.StartsAt = &t
		}
		if ends.Valid {
			t := ends.Time
			d.EndsAt = &t
		}
		j.Discount = d
	}
	return j, nil
}

// listQuery numbers placeholders as they are emitted. The evaluation instant
// is bound only once a price expression needs it.
type listQuery struct {
	now  time.Time
	at   string
	args []interface{}
}

func (q *listQuery) arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *listQuery) price() string {
	if q.at == "" {
		q.at = q.arg(q.now)
	}
	return effectivePrice(q.at)
}

func (q *listQuery) where(f ListFilter) string {
	clauses := []string{"1=1"}
	if !f.IncludeInactive {
		clauses = append(clauses, "j.is_active")
	}
	if f.CategorySlug != "" {
		clauses = append(clauses, "c.slug="+q.arg(f.CategorySlug))
	}
	if f.Material != "" {
		clauses = append(clauses, "LOWER(j.material)=LOWER("+q.arg(f.Material)+")")
	}
	if f.MinPrice != nil {
		clauses = append(clauses, q.price()+" >= "+q.arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, q.price()+" <= "+q.arg(*f.MaxPrice))
	}
	if f.InStock {
		clauses = append(clauses, "j.stock > 0")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := q.arg("%" + escapeLike(s) + "%")
		clauses = append(clauses, fmt.Sprintf("(j.name ILIKE %[1]s OR j.description ILIKE %[1]s OR j.material ILIKE %[1]s)", p))
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (q *listQuery) orderBy(s Sort) string {
	switch s {
	case SortPriceAsc:
		return " ORDER BY " + q.price() + " ASC, j.name ASC"
	case SortPriceDesc:
		return " ORDER BY " + q.price() + " DESC, j.name ASC"
	case SortPopular:
		return " ORDER BY j.view_count DESC, j.created_at DESC"
	case SortBestSellers:
		return " ORDER BY j.sales_count DESC, j.created_at DESC"
	default:
		return " ORDER BY j.created_at DESC, j.name ASC"
	}
}

// listSQL returns the page query and its arguments.
func listSQL(f ListFilter, now time.Time, limit, offset int) (string, []interface{}) {
	q := &listQuery{now: now}
	query := selectJewel + q.where(f) + q.orderBy(f.Sort)
	query += " LIMIT " + q.arg(limit) + " OFFSET " + q.arg(offset)
	return query, q.args
}

// countSQL returns the query counting every match of f.
func countSQL(f ListFilter, now time.Time) (string, []interface{}) {
	q := &listQuery{now: now}
	return `SELECT COUNT(*) FROM jewels j LEFT JOIN categories c ON c.id = j.category_id` + q.where(f), q.args
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter, now time.Time, limit, offset int) ([]*Jewel, error) {
	query, args := listSQL(f, now, limit, offset)
	return r.query(ctx, query, args...)
}

func (r *postgresRepo) Count(ctx context.Context, f ListFilter, now time.Time) (int, error) {
	query, args := countSQL(f, now)
	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *postgresRepo) All(ctx context.Context) ([]*Jewel, error) {
	return r.query(ctx, selectJewel+` ORDER BY j.created_at DESC`)
}

func (r *postgresRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Jewel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, selectJewel+` WHERE j.id = ANY($1::uuid[])`, pq.Array(uuidStrings(ids)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Jewel, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	j, err := scanJewel(r.db.QueryRowContext(ctx, selectJewel+` WHERE j.id=$1`, uid).Scan)
	if err != nil {
		return nil, err
	}
	return j, r.loadSizes(ctx, []*Jewel{j})
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*Jewel, error) {
	j, err := scanJewel(r.db.QueryRowContext(ctx, selectJewel+` WHERE j.slug=$1`, slug).Scan)
	if err != nil {
		return nil, err
	}
	return j, r.loadSizes(ctx, []*Jewel{j})
}

func (r *postgresRepo) query(ctx context.Context, query string, args ...interface{}) ([]*Jewel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jewels []*Jewel
	for rows.Next() {
		j, err := scanJewel(rows.Scan)
		if err != nil {
			return nil, err
		}
		jewels = append(jewels, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jewels, r.loadSizes(ctx, jewels)
}

func (r *postgresRepo) loadSizes(ctx context.Context, jewels []*Jewel) error {
	if len(jewels) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Jewel, len(jewels))
	ids := make([]uuid.UUID, 0, len(jewels))
	for _, j := range jewels {
		byID[j.ID] = j
		ids = append(ids, j.ID)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT jewel_id, size, stock FROM jewel_sizes WHERE jewel_id = ANY($1::uuid[]) ORDER BY size`,
		pq.Array(uuidStrings(ids)))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var s SizeStock
		if err := rows.Scan(&id, &s.Size, &s.Stock); err != nil {
			return err
		}
		if j, ok := byID[id]; ok {
			j.Sizes = append(j.Sizes, s)
		}
	}
	return rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, j *Jewel) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO jewels (id,name,slug,description,category_id,material,base_price,currency,stock,main_image_url,is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		j.ID, j.Name, j.Slug, j.Description, j.CategoryID, j.Material, j.BasePrice,
		j.Currency, j.TotalStock(), j.MainImageURL, j.IsActive).Scan(&j.CreatedAt, &j.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return err
	}
	if err := writeSizes(ctx, tx, j); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) Update(ctx context.Context, j *Jewel) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE jewels SET name=$1, slug=$2, description=$3, category_id=$4, material=$5,
		       base_price=$6, stock=$7, is_active=$8, updated_at=NOW()
		WHERE id=$9`,
		j.Name, j.Slug, j.Description, j.CategoryID, j.Material, j.BasePrice,
		j.TotalStock(), j.IsActive, j.ID)
	if database.IsUniqueViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jewel_sizes WHERE jewel_id=$1`, j.ID); err != nil {
		return err
	}
	if err := writeSizes(ctx, tx, j); err != nil {
		return err
	}
	return tx.Commit()
}

func writeSizes(ctx context.Context, tx *sql.Tx, j *Jewel) error {
	for _, s := range j.Sizes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jewel_sizes (jewel_id,size,stock) VALUES ($1,$2,$3)`, j.ID, s.Size, s.Stock); err != nil {
			return fmt.Errorf("insert size %q: %w", s.Size, err)
		}
	}
	return nil
}

func (r *postgresRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE jewels SET view_count = view_count + 1 WHERE id=$1`, id)
	return err
}

func (r *postgresRepo) SetDiscount(ctx context.Context, id string, d *pricing.Discount) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	var (
		typ              interface{}
		value            interface{}
		startsAt, endsAt interface{}
	)
	if d != nil {
		typ, value = string(d.Type), d.Value
		if d.StartsAt != nil {
			startsAt = *d.StartsAt
		}
		if d.EndsAt != nil {
			endsAt = *d.EndsAt
		}
	}
	return r.exec(ctx, `
		UPDATE jewels SET discount_type=$1, discount_value=$2, discount_starts_at=$3,
		       discount_ends_at=$4, updated_at=NOW()
		WHERE id=$5`, typ, value, startsAt, endsAt, uid)
}

func (r *postgresRepo) SetMainImage(ctx context.Context, id string, url string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	return r.exec(ctx, `UPDATE jewels SET main_image_url=$1, updated_at=NOW() WHERE id=$2`, url, uid)
}

func (r *postgresRepo) Deactivate(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	return r.exec(ctx, `UPDATE jewels SET is_active=false, updated_at=NOW() WHERE id=$1`, uid)
}

func (r *postgresRepo) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

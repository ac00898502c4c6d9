package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const categoryColumns = `id, name, description, parent_id, created_at, updated_at, deleted_at`

// CategoryPostgres is a PostgreSQL implementation of repository.CategoryRepository.
type CategoryPostgres struct {
	db DBTX
}

func NewCategoryPostgres(db DBTX) *CategoryPostgres {
	return &CategoryPostgres{db: db}
}

var _ repository.CategoryRepository = (*CategoryPostgres)(nil)

func (r *CategoryPostgres) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	const q = `
		INSERT INTO categories (id, name, description, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + categoryColumns
	return scanCategory(r.db.QueryRowContext(ctx, q,
		c.ID, c.Name, nullString(c.Description), nullStringPtr(c.ParentID), c.CreatedAt, c.UpdatedAt,
	))
}

func (r *CategoryPostgres) FindByID(ctx context.Context, id string) (*model.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND deleted_at IS NULL`
	c, err := scanCategory(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *CategoryPostgres) Update(ctx context.Context, c *model.Category) (*model.Category, error) {
	const q = `
		UPDATE categories
		SET name = $2, description = $3, parent_id = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + categoryColumns
	out, err := scanCategory(r.db.QueryRowContext(ctx, q,
		c.ID, c.Name, nullString(c.Description), nullStringPtr(c.ParentID), c.UpdatedAt,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return out, nil
}

func (r *CategoryPostgres) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE categories SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CategoryPostgres) DetachChildren(ctx context.Context, parentID string, at time.Time) (int, error) {
	const q = `UPDATE categories SET parent_id = NULL, updated_at = $2 WHERE parent_id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, parentID, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *CategoryPostgres) ListAll(ctx context.Context) ([]model.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE deleted_at IS NULL ORDER BY name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CategoryPostgres) CountDocuments(ctx context.Context, categoryID string) (int, error) {
	const q = `SELECT COUNT(*) FROM documents WHERE category_id = $1 AND deleted_at IS NULL`
	var n int
	if err := r.db.QueryRowContext(ctx, q, categoryID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanCategory(s rowScanner) (*model.Category, error) {
	var (
		c           model.Category
		description sql.NullString
		parentID    sql.NullString
		deletedAt   sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.Name, &description, &parentID, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	c.Description = description.String
	if parentID.Valid {
		p := parentID.String
		c.ParentID = &p
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		c.DeletedAt = &t
	}
	return &c, nil
}

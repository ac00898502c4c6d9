package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, title, description, file_path, file_name, file_type, file_size,
		status, category_id, user_id, created_at, updated_at, deleted_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db DBTX
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db DBTX) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, description, file_path, file_name, file_type, file_size,
			status, category_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + documentColumns

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		nullString(doc.Description),
		nullString(doc.FilePath),
		nullString(doc.FileName),
		nullString(doc.FileType),
		fileSizeArg(doc),
		string(doc.Status),
		doc.CategoryID,
		doc.OwnerID,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single active document.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND deleted_at IS NULL`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// FindByIDWithTrashed fetches a document whether or not it was soft-deleted.
func (r *DocumentPostgres) FindByIDWithTrashed(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// Update writes the mutable columns of an active document.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET title = $2, description = $3, file_path = $4, file_name = $5, file_type = $6,
			file_size = $7, status = $8, category_id = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + documentColumns

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		nullString(doc.Description),
		nullString(doc.FilePath),
		nullString(doc.FileName),
		nullString(doc.FileType),
		fileSizeArg(doc),
		string(doc.Status),
		doc.CategoryID,
		doc.UpdatedAt,
	)
	d, err := scanDocument(row)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

// SoftDelete sets deleted_at; the row itself is kept.
func (r *DocumentPostgres) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE documents SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
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

// List returns active documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	return r.page(ctx, &placeholders{}, "", pq)
}

// Search matches title OR description with ILIKE.
func (r *DocumentPostgres) Search(ctx context.Context, term string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	p := &placeholders{}
	ph := p.add(containsPattern(term))
	return r.page(ctx, p, "(title ILIKE "+ph+" OR description ILIKE "+ph+")", pq)
}

func (r *DocumentPostgres) ListByCategory(ctx context.Context, categoryID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	p := &placeholders{}
	return r.page(ctx, p, "category_id = "+p.add(categoryID), pq)
}

func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	p := &placeholders{}
	return r.page(ctx, p, "user_id = "+p.add(ownerID), pq)
}

// Recent returns the n newest active documents.
func (r *DocumentPostgres) Recent(ctx context.Context, n int) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func (r *DocumentPostgres) page(ctx context.Context, p *placeholders, cond string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where := "WHERE deleted_at IS NULL"
	if cond != "" {
		where += " AND " + cond
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents `+where, p.args...).Scan(&total); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + documentColumns + ` FROM documents `)
	b.WriteString(where)
	b.WriteString(` ORDER BY created_at DESC, id DESC LIMIT `)
	b.WriteString(p.add(pq.Limit))
	b.WriteString(` OFFSET `)
	b.WriteString(p.add(pq.Offset))

	rows, err := r.db.QueryContext(ctx, b.String(), p.args...)
	if err != nil {
		return nil, err
	}
	items, err := collectDocuments(rows)
	if err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

func collectDocuments(rows *sql.Rows) ([]model.Document, error) {
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanDocument(s rowScanner) (*model.Document, error) {
	var (
		d           model.Document
		description sql.NullString
		filePath    sql.NullString
		fileName    sql.NullString
		fileType    sql.NullString
		fileSize    sql.NullInt64
		status      string
		deletedAt   sql.NullTime
	)
	if err := s.Scan(
		&d.ID,
		&d.Title,
		&description,
		&filePath,
		&fileName,
		&fileType,
		&fileSize,
		&status,
		&d.CategoryID,
		&d.OwnerID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}

	d.Description = description.String
	d.FilePath = filePath.String
	d.FileName = fileName.String
	d.FileType = fileType.String
	d.FileSize = fileSize.Int64
	d.Status = model.DocumentStatus(status)
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	return &d, nil
}

func fileSizeArg(doc *model.Document) any {
	if !doc.HasFile() {
		return nil
	}
	return doc.FileSize
}

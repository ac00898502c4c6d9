package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentRowColumns = []string{
	"id", "title", "description", "file_path", "file_name", "file_type", "file_size",
	"status", "category_id", "user_id", "created_at", "updated_at", "deleted_at",
}

func documentRow(rows *sqlmock.Rows, d model.Document) *sqlmock.Rows {
	var filePath, fileName, fileType, fileSize any
	if d.FilePath != "" {
		filePath, fileName, fileType, fileSize = d.FilePath, d.FileName, d.FileType, d.FileSize
	}
	var deletedAt any
	if d.DeletedAt != nil {
		deletedAt = *d.DeletedAt
	}
	return rows.AddRow(d.ID, d.Title, d.Description, filePath, fileName, fileType, fileSize,
		string(d.Status), d.CategoryID, d.OwnerID, d.CreatedAt, d.UpdatedAt, deletedAt)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ID:          "doc-1",
		Title:       "Quarterly report",
		Description: "numbers",
		FilePath:    "documents/2024/05/01/abc.pdf",
		FileName:    "report.pdf",
		FileType:    "application/pdf",
		FileSize:    2048,
		Status:      model.StatusActive,
		CategoryID:  "cat-1",
		OwnerID:     "user-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Title, doc.Description, doc.FilePath, doc.FileName, doc.FileType, doc.FileSize,
			"active", doc.CategoryID, doc.OwnerID, doc.CreatedAt, doc.UpdatedAt).
		WillReturnRows(documentRow(sqlmock.NewRows(documentRowColumns), *doc))

	result, err := repo.Create(ctx, doc)

	require.NoError(t, err)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, int64(2048), result.FileSize)
	assert.Nil(t, result.DeletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_CreateWithoutFile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)

	now := time.Now().UTC()
	doc := &model.Document{ID: "doc-2", Title: "Memo", Status: model.StatusActive, CategoryID: "cat-1", OwnerID: "user-1", CreatedAt: now, UpdatedAt: now}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Title, nil, nil, nil, nil, nil, "active", doc.CategoryID, doc.OwnerID, now, now).
		WillReturnRows(documentRow(sqlmock.NewRows(documentRowColumns), *doc))

	result, err := repo.Create(context.Background(), doc)

	require.NoError(t, err)
	assert.False(t, result.HasFile())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = (.+) AND deleted_at IS NULL").
			WithArgs("doc-1").
			WillReturnRows(documentRow(sqlmock.NewRows(documentRowColumns), model.Document{
				ID: "doc-1", Title: "t", Status: model.StatusActive, CategoryID: "c", OwnerID: "u", CreatedAt: now, UpdatedAt: now,
			}))

		doc, err := repo.FindByID(ctx, "doc-1")

		require.NoError(t, err)
		assert.Equal(t, "doc-1", doc.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = (.+) AND deleted_at IS NULL").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, doc)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByIDWithTrashed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)

	now := time.Now()
	deleted := now.Add(time.Minute)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = ").
		WithArgs("doc-1").
		WillReturnRows(documentRow(sqlmock.NewRows(documentRowColumns), model.Document{
			ID: "doc-1", Title: "t", Status: model.StatusActive, CategoryID: "c", OwnerID: "u",
			CreatedAt: now, UpdatedAt: deleted, DeletedAt: &deleted,
		}))

	doc, err := repo.FindByIDWithTrashed(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.True(t, doc.IsDeleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Update(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()
	doc := &model.Document{ID: "doc-1", Title: "New", Status: model.StatusArchived, CategoryID: "c", OwnerID: "u", CreatedAt: now, UpdatedAt: now}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE documents SET (.+) WHERE id = (.+) AND deleted_at IS NULL RETURNING").
			WithArgs(doc.ID, "New", nil, nil, nil, nil, nil, "archived", "c", now).
			WillReturnRows(documentRow(sqlmock.NewRows(documentRowColumns), *doc))

		out, err := repo.Update(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, model.StatusArchived, out.Status)
	})

	t.Run("soft-deleted row", func(t *testing.T) {
		mock.ExpectQuery("UPDATE documents SET").WillReturnError(sql.ErrNoRows)

		_, err := repo.Update(ctx, doc)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_SoftDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	at := time.Now().UTC()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET deleted_at = (.+) WHERE id = (.+) AND deleted_at IS NULL").
			WithArgs("doc-1", at).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SoftDelete(ctx, "doc-1", at))
	})

	t.Run("already deleted", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET deleted_at").
			WithArgs("doc-1", at).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SoftDelete(ctx, "doc-1", at), repository.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET deleted_at").
			WillReturnError(errors.New("conn closed"))

		assert.EqualError(t, repo.SoftDelete(ctx, "doc-1", at), "conn closed")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE deleted_at IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT").
		WithArgs(10, 0).
		WillReturnRows(documentRow(sqlmock.NewRows(documentRowColumns), model.Document{
			ID: "doc-1", Title: "t", Status: model.StatusActive, CategoryID: "c", OwnerID: "u", CreatedAt: now, UpdatedAt: now,
		}))

	res, err := repo.List(context.Background(), repository.PageQuery{Limit: 10, Offset: 0})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Search(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE deleted_at IS NULL AND \\(title ILIKE (.+) OR description ILIKE (.+)\\)").
		WithArgs(`%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE deleted_at IS NULL AND \\(title ILIKE").
		WithArgs(`%50\%\_off%`, 5, 10).
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	res, err := repo.Search(context.Background(), "50%_off", repository.PageQuery{Limit: 5, Offset: 10})

	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ListByCategoryAndOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE deleted_at IS NULL AND category_id = ").
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE deleted_at IS NULL AND category_id = ").
		WithArgs("cat-1", 10, 0).
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	_, err := repo.ListByCategory(ctx, "cat-1", repository.PageQuery{Limit: 10})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE deleted_at IS NULL AND user_id = ").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE deleted_at IS NULL AND user_id = ").
		WithArgs("user-1", 10, 0).
		WillReturnRows(sqlmock.NewRows(documentRowColumns))

	_, err = repo.ListByOwner(ctx, "user-1", repository.PageQuery{Limit: 10})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Recent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDocumentPostgres(db)
	now := time.Now()

	rows := sqlmock.NewRows(documentRowColumns)
	documentRow(rows, model.Document{ID: "b", Title: "B", Status: model.StatusActive, CategoryID: "c", OwnerID: "u", CreatedAt: now, UpdatedAt: now})
	documentRow(rows, model.Document{ID: "a", Title: "A", Status: model.StatusActive, CategoryID: "c", OwnerID: "u", CreatedAt: now.Add(-time.Hour), UpdatedAt: now})

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT").
		WithArgs(5).
		WillReturnRows(rows)

	docs, err := repo.Recent(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

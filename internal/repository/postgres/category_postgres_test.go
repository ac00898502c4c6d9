package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryRowColumns = []string{"id", "name", "description", "parent_id", "created_at", "updated_at", "deleted_at"}

func TestCategoryPostgres_CreateAndFind(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCategoryPostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()
	parent := "root"

	mock.ExpectQuery("INSERT INTO categories").
		WithArgs("cat-1", "Invoices", nil, "root", now, now).
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).AddRow("cat-1", "Invoices", nil, "root", now, now, nil))

	c, err := repo.Create(ctx, &model.Category{ID: "cat-1", Name: "Invoices", ParentID: &parent, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, "root", *c.ParentID)

	mock.ExpectQuery("SELECT (.+) FROM categories WHERE id = (.+) AND deleted_at IS NULL").
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByID(ctx, "gone")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryPostgres_ListAllAndCount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCategoryPostgres(db)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM categories WHERE deleted_at IS NULL ORDER BY name ASC, id ASC").
		WillReturnRows(sqlmock.NewRows(categoryRowColumns).
			AddRow("a", "Alpha", "first", nil, now, now, nil).
			AddRow("b", "Beta", nil, "a", now, now, nil))

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].ParentID)
	assert.Equal(t, "first", list[0].Description)
	assert.Equal(t, "a", *list[1].ParentID)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE category_id = (.+) AND deleted_at IS NULL").
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountDocuments(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryPostgres_DetachChildren(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCategoryPostgres(db)
	at := time.Now()

	mock.ExpectExec("UPDATE categories SET parent_id = NULL").
		WithArgs("parent", at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DetachChildren(context.Background(), "parent", at)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryPostgres_SoftDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCategoryPostgres(db)
	at := time.Now()

	mock.ExpectExec("UPDATE categories SET deleted_at").
		WithArgs("a", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "a", at), repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentRepository defines data access for documents.
// Every read excludes soft-deleted rows unless the method says otherwise,
// and lists are ordered newest first (created_at DESC, id DESC).
// There is no physical delete: history rows reference documents forever.
type DocumentRepository interface {
	// Create inserts a new document. The caller supplies ID and timestamps.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns an active document or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByIDWithTrashed also resolves soft-deleted documents.
	FindByIDWithTrashed(ctx context.Context, id string) (*model.Document, error)

	// Update overwrites the mutable columns of an active document.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// SoftDelete marks an active document deleted at the given time.
	SoftDelete(ctx context.Context, id string, at time.Time) error

	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// Search matches term case-insensitively against title OR description.
	Search(ctx context.Context, term string, pq PageQuery) (*PageResult[model.Document], error)

	ListByCategory(ctx context.Context, categoryID string, pq PageQuery) (*PageResult[model.Document], error)
	ListByOwner(ctx context.Context, ownerID string, pq PageQuery) (*PageResult[model.Document], error)

	// Recent returns at most n of the newest documents.
	Recent(ctx context.Context, n int) ([]model.Document, error)
}

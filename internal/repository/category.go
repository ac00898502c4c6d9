package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// CategoryRepository defines data access for categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) (*model.Category, error)
	// FindByID returns an active category or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Category, error)
	Update(ctx context.Context, c *model.Category) (*model.Category, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// DetachChildren clears parent_id on the active children of parentID
	// and returns how many were moved to the root.
	DetachChildren(ctx context.Context, parentID string, at time.Time) (int, error)
	// ListAll returns every active category ordered by name, then id.
	ListAll(ctx context.Context) ([]model.Category, error)
	// CountDocuments counts active documents filed under the category.
	CountDocuments(ctx context.Context, categoryID string) (int, error)
}

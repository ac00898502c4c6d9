package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// HistoryRepository is the append-only audit log store.
// It deliberately exposes no update or delete.
type HistoryRepository interface {
	// Append inserts one entry and returns it with its assigned ID.
	Append(ctx context.Context, h *model.DocumentHistory) (*model.DocumentHistory, error)

	// List returns entries matching f in recording order (created_at ASC, id ASC).
	List(ctx context.Context, f HistoryFilter) (*PageResult[model.DocumentHistory], error)
}

// HistoryFilter narrows a history listing. Zero values mean "any".
// From and To are inclusive bounds on created_at.
type HistoryFilter struct {
	DocumentID string
	ActorID    string
	Action     model.HistoryAction
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

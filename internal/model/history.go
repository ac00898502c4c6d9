package model

import "time"

// HistoryAction names the mutation recorded by a history entry.
type HistoryAction string

const (
	ActionCreated HistoryAction = "created"
	ActionUpdated HistoryAction = "updated"
	ActionDeleted HistoryAction = "deleted"
)

// Valid reports whether a is one of the recorded actions.
func (a HistoryAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// DocumentHistory is one append-only audit entry.
// ActorID is nil when the mutation was performed without an authenticated actor.
type DocumentHistory struct {
	ID         int64          `json:"id"`
	DocumentID string         `json:"document_id"`
	ActorID    *string        `json:"user_id"`
	Action     HistoryAction  `json:"action"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

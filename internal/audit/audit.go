// Package audit builds and records document history entries.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// ErrInvalidEntry is returned for entries that cannot be recorded.
var ErrInvalidEntry = errors.New("audit: invalid entry")

const timeLayout = time.RFC3339Nano

// Snapshot returns the full stored attribute set of doc.
// Unset optional columns map to nil, timestamps to RFC 3339 strings.
func Snapshot(doc *model.Document) map[string]any {
	s := map[string]any{
		"id":          doc.ID,
		"title":       doc.Title,
		"description": optional(doc.Description),
		"file_path":   optional(doc.FilePath),
		"file_name":   optional(doc.FileName),
		"file_type":   optional(doc.FileType),
		"file_size":   nil,
		"status":      string(doc.Status),
		"category_id": doc.CategoryID,
		"user_id":     doc.OwnerID,
		"created_at":  doc.CreatedAt.UTC().Format(timeLayout),
		"updated_at":  doc.UpdatedAt.UTC().Format(timeLayout),
		"deleted_at":  nil,
	}
	if doc.HasFile() {
		s["file_size"] = doc.FileSize
	}
	if doc.DeletedAt != nil {
		s["deleted_at"] = doc.DeletedAt.UTC().Format(timeLayout)
	}
	return s
}

// Changes maps every stored field whose value differs between before and
// after to its new value. updated_at is bookkeeping and never reported.
func Changes(before, after *model.Document) map[string]any {
	prev, next := Snapshot(before), Snapshot(after)
	out := make(map[string]any)
	for k, v := range next {
		if k == "updated_at" {
			continue
		}
		if prev[k] != v {
			out[k] = v
		}
	}
	return out
}

// Recorder appends history entries. It is only called from inside the unit
// of work that performs the mutation.
type Recorder struct {
	now func() time.Time
}

// NewRecorder returns a Recorder stamping entries with now. A nil now uses time.Now.
func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Record appends one entry for documentID. actorID may be nil.
func (r *Recorder) Record(ctx context.Context, histories repository.HistoryRepository, documentID string, actorID *string, action model.HistoryAction, details map[string]any) (*model.DocumentHistory, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidEntry)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidEntry, action)
	}
	if details == nil {
		details = map[string]any{}
	}
	if actorID != nil && *actorID == "" {
		actorID = nil
	}

	return histories.Append(ctx, &model.DocumentHistory{
		DocumentID: documentID,
		ActorID:    actorID,
		Action:     action,
		Details:    details,
		CreatedAt:  r.now().UTC(),
	})
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

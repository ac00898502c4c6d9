package service

import (
	"context"
	"errors"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// HistoryService reads the audit log. Entries come back in recording order.
type HistoryService interface {
	// ForDocument lists the entries of one document, soft-deleted or not.
	ForDocument(ctx context.Context, documentID string, limit, offset int) (*HistoryListResult, error)

	// Query lists entries across documents.
	Query(ctx context.Context, f repository.HistoryFilter) (*HistoryListResult, error)
}

type historyService struct {
	store repository.Store
	opts  Options
}

// NewHistoryService constructs a new HistoryService.
func NewHistoryService(store repository.Store, opts Options) HistoryService {
	return &historyService{store: store, opts: opts.withDefaults()}
}

func (s *historyService) ForDocument(ctx context.Context, documentID string, limit, offset int) (res *HistoryListResult, err error) {
	ctx, span := startSpan(ctx, "HistoryService.ForDocument")
	defer func() { endSpan(span, err) }()

	if !validID(documentID) {
		return nil, &NotFoundError{Entity: "document", ID: documentID}
	}
	if _, err := s.store.Documents().FindByIDWithTrashed(ctx, documentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "document", ID: documentID}
		}
		return nil, &TransactionError{Op: "load document", Err: err}
	}
	return s.list(ctx, repository.HistoryFilter{DocumentID: documentID, Limit: limit, Offset: offset})
}

func (s *historyService) Query(ctx context.Context, f repository.HistoryFilter) (res *HistoryListResult, err error) {
	ctx, span := startSpan(ctx, "HistoryService.Query")
	defer func() { endSpan(span, err) }()

	if f.Action != "" && !f.Action.Valid() {
		return nil, invalid("action", "must be created, updated or deleted")
	}
	if f.DocumentID != "" && !validID(f.DocumentID) {
		return nil, invalid("document_id", "is invalid")
	}
	if f.ActorID != "" && !validID(f.ActorID) {
		return nil, invalid("user_id", "is invalid")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, invalid("from", "must not be after to")
	}
	return s.list(ctx, f)
}

func (s *historyService) list(ctx context.Context, f repository.HistoryFilter) (*HistoryListResult, error) {
	f.Limit, f.Offset = s.opts.page(f.Limit, f.Offset)
	res, err := s.store.Histories().List(ctx, f)
	if err != nil {
		return nil, &TransactionError{Op: "list history", Err: err}
	}
	items := res.Items
	if items == nil {
		items = []model.DocumentHistory{}
	}
	return &HistoryListResult{Items: items, Total: res.Total, Limit: f.Limit, Offset: f.Offset}, nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// HistoryPostgres appends and reads document_histories rows.
type HistoryPostgres struct {
	db DBTX
}

func NewHistoryPostgres(db DBTX) *HistoryPostgres {
	return &HistoryPostgres{db: db}
}

var _ repository.HistoryRepository = (*HistoryPostgres)(nil)

// Append inserts one entry. Details are stored as JSONB.
func (r *HistoryPostgres) Append(ctx context.Context, h *model.DocumentHistory) (*model.DocumentHistory, error) {
	details := h.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal history details: %w", err)
	}

	const q = `
		INSERT INTO document_histories (document_id, user_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	out := *h
	out.Details = details
	if err := r.db.QueryRowContext(ctx, q,
		h.DocumentID,
		nullStringPtr(h.ActorID),
		string(h.Action),
		string(raw),
		h.CreatedAt,
	).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns entries in recording order.
func (r *HistoryPostgres) List(ctx context.Context, f repository.HistoryFilter) (*repository.PageResult[model.DocumentHistory], error) {
	p := &placeholders{}
	var conds []string
	if f.DocumentID != "" {
		conds = append(conds, "document_id = "+p.add(f.DocumentID))
	}
	if f.ActorID != "" {
		conds = append(conds, "user_id = "+p.add(f.ActorID))
	}
	if f.Action != "" {
		conds = append(conds, "action = "+p.add(string(f.Action)))
	}
	if f.From != nil {
		conds = append(conds, "created_at >= "+p.add(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "created_at <= "+p.add(*f.To))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_histories`+where, p.args...).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT id, document_id, user_id, action, details, created_at FROM document_histories` +
		where + ` ORDER BY created_at ASC, id ASC LIMIT ` + p.add(f.Limit) + ` OFFSET ` + p.add(f.Offset)
	rows, err := r.db.QueryContext(ctx, q, p.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DocumentHistory, 0)
	for rows.Next() {
		var (
			h       model.DocumentHistory
			actorID sql.NullString
			action  string
			raw     []byte
		)
		if err := rows.Scan(&h.ID, &h.DocumentID, &actorID, &action, &raw, &h.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			a := actorID.String
			h.ActorID = &a
		}
		h.Action = model.HistoryAction(action)
		h.Details = map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &h.Details); err != nil {
				return nil, fmt.Errorf("decode history %d details: %w", h.ID, err)
			}
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.DocumentHistory]{Items: items, Total: total}, nil
}

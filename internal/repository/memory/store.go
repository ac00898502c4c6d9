// Package memory is a transactional in-process implementation of
// repository.Store. A transaction works on a cloned snapshot that replaces
// the live state only when it commits, so a failed unit of work leaves no trace.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

type state struct {
	documents     map[string]model.Document
	categories    map[string]model.Category
	histories     []model.DocumentHistory
	users         map[string]struct{}
	nextHistoryID int64
}

func newState() *state {
	return &state{
		documents:  make(map[string]model.Document),
		categories: make(map[string]model.Category),
		users:      make(map[string]struct{}),
	}
}

func (s *state) clone() *state {
	return &state{
		documents:     maps.Clone(s.documents),
		categories:    maps.Clone(s.categories),
		histories:     append([]model.DocumentHistory(nil), s.histories...),
		users:         maps.Clone(s.users),
		nextHistoryID: s.nextHistoryID,
	}
}

type database struct {
	mu         sync.RWMutex
	st         *state
	failCommit error
}

// Store implements repository.Store in memory.
type Store struct {
	db *database
	tx *state
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{db: &database{st: newState()}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Documents() repository.DocumentRepository  { return &documentRepo{s: s} }
func (s *Store) Categories() repository.CategoryRepository { return &categoryRepo{s: s} }
func (s *Store) Histories() repository.HistoryRepository   { return &historyRepo{s: s} }
func (s *Store) Users() repository.UserRepository          { return &userRepo{s: s} }

// FailCommit makes the next commit fail with err, discarding the staged changes.
func (s *Store) FailCommit(err error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.failCommit = err
}

// WithinTx stages every change made through tx and publishes them on commit.
// Transactions are serialised; fn must not use the outer Store.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	staged := s.db.st.clone()
	if err := fn(&Store{db: s.db, tx: staged}); err != nil {
		return err
	}
	if err := s.db.failCommit; err != nil {
		s.db.failCommit = nil
		return fmt.Errorf("%w: %w", repository.ErrCommit, err)
	}
	s.db.st = staged
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return fn(s.db.st)
}

func (s *Store) write(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.st)
}

type userRepo struct{ s *Store }

func (r *userRepo) Ensure(_ context.Context, id string) error {
	return r.s.write(func(st *state) error {
		st.users[id] = struct{}{}
		return nil
	})
}

type documentRepo struct{ s *Store }

func (r *documentRepo) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	var out model.Document
	err := r.s.write(func(st *state) error {
		if _, ok := st.documents[doc.ID]; ok {
			return fmt.Errorf("document %s already exists", doc.ID)
		}
		if c, ok := st.categories[doc.CategoryID]; !ok || c.DeletedAt != nil {
			return fmt.Errorf("category %s does not exist", doc.CategoryID)
		}
		out = *doc
		out.DeletedAt = nil
		st.documents[doc.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) FindByID(ctx context.Context, id string) (*model.Document, error) {
	d, err := r.FindByIDWithTrashed(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (r *documentRepo) FindByIDWithTrashed(_ context.Context, id string) (*model.Document, error) {
	var out model.Document
	err := r.s.read(func(st *state) error {
		d, ok := st.documents[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) Update(_ context.Context, doc *model.Document) (*model.Document, error) {
	var out model.Document
	err := r.s.write(func(st *state) error {
		cur, ok := st.documents[doc.ID]
		if !ok || cur.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = *doc
		out.OwnerID = cur.OwnerID
		out.CreatedAt = cur.CreatedAt
		out.DeletedAt = nil
		st.documents[doc.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.documents[id]
		if !ok || cur.DeletedAt != nil {
			return repository.ErrNotFound
		}
		cur.DeletedAt = &at
		cur.UpdatedAt = at
		st.documents[id] = cur
		return nil
	})
}

func (r *documentRepo) List(_ context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	return r.page(pq, func(model.Document) bool { return true })
}

func (r *documentRepo) Search(_ context.Context, term string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	needle := strings.ToLower(term)
	return r.page(pq, func(d model.Document) bool {
		return strings.Contains(strings.ToLower(d.Title), needle) ||
			strings.Contains(strings.ToLower(d.Description), needle)
	})
}

func (r *documentRepo) ListByCategory(_ context.Context, categoryID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	return r.page(pq, func(d model.Document) bool { return d.CategoryID == categoryID })
}

func (r *documentRepo) ListByOwner(_ context.Context, ownerID string, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	return r.page(pq, func(d model.Document) bool { return d.OwnerID == ownerID })
}

func (r *documentRepo) Recent(_ context.Context, n int) ([]model.Document, error) {
	all := r.active(func(model.Document) bool { return true })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (r *documentRepo) active(match func(model.Document) bool) []model.Document {
	items := make([]model.Document, 0)
	_ = r.s.read(func(st *state) error {
		for _, d := range st.documents {
			if d.DeletedAt == nil && match(d) {
				items = append(items, d)
			}
		}
		return nil
	})
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items
}

func (r *documentRepo) page(pq repository.PageQuery, match func(model.Document) bool) (*repository.PageResult[model.Document], error) {
	all := r.active(match)
	return &repository.PageResult[model.Document]{
		Items: window(all, pq.Limit, pq.Offset),
		Total: len(all),
	}, nil
}

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(_ context.Context, c *model.Category) (*model.Category, error) {
	var out model.Category
	err := r.s.write(func(st *state) error {
		if _, ok := st.categories[c.ID]; ok {
			return fmt.Errorf("category %s already exists", c.ID)
		}
		out = *c
		out.Children = nil
		out.DeletedAt = nil
		st.categories[c.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *categoryRepo) FindByID(_ context.Context, id string) (*model.Category, error) {
	var out model.Category
	err := r.s.read(func(st *state) error {
		c, ok := st.categories[id]
		if !ok || c.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *categoryRepo) Update(_ context.Context, c *model.Category) (*model.Category, error) {
	var out model.Category
	err := r.s.write(func(st *state) error {
		cur, ok := st.categories[c.ID]
		if !ok || cur.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = *c
		out.Children = nil
		out.CreatedAt = cur.CreatedAt
		st.categories[c.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *categoryRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	return r.s.write(func(st *state) error {
		cur, ok := st.categories[id]
		if !ok || cur.DeletedAt != nil {
			return repository.ErrNotFound
		}
		cur.DeletedAt = &at
		cur.UpdatedAt = at
		st.categories[id] = cur
		return nil
	})
}

func (r *categoryRepo) DetachChildren(_ context.Context, parentID string, at time.Time) (int, error) {
	n := 0
	err := r.s.write(func(st *state) error {
		for id, c := range st.categories {
			if c.DeletedAt != nil || c.ParentID == nil || *c.ParentID != parentID {
				continue
			}
			c.ParentID = nil
			c.UpdatedAt = at
			st.categories[id] = c
			n++
		}
		return nil
	})
	return n, err
}

func (r *categoryRepo) ListAll(_ context.Context) ([]model.Category, error) {
	items := make([]model.Category, 0)
	_ = r.s.read(func(st *state) error {
		for _, c := range st.categories {
			if c.DeletedAt == nil {
				items = append(items, c)
			}
		}
		return nil
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *categoryRepo) CountDocuments(_ context.Context, categoryID string) (int, error) {
	n := 0
	_ = r.s.read(func(st *state) error {
		for _, d := range st.documents {
			if d.DeletedAt == nil && d.CategoryID == categoryID {
				n++
			}
		}
		return nil
	})
	return n, nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Append(_ context.Context, h *model.DocumentHistory) (*model.DocumentHistory, error) {
	var out model.DocumentHistory
	err := r.s.write(func(st *state) error {
		if _, ok := st.documents[h.DocumentID]; !ok {
			return fmt.Errorf("document %s does not exist", h.DocumentID)
		}
		st.nextHistoryID++
		out = *h
		out.ID = st.nextHistoryID
		out.Details = maps.Clone(h.Details)
		if out.Details == nil {
			out.Details = map[string]any{}
		}
		st.histories = append(st.histories, out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *historyRepo) List(_ context.Context, f repository.HistoryFilter) (*repository.PageResult[model.DocumentHistory], error) {
	items := make([]model.DocumentHistory, 0)
	_ = r.s.read(func(st *state) error {
		for _, h := range st.histories {
			if f.DocumentID != "" && h.DocumentID != f.DocumentID {
				continue
			}
			if f.ActorID != "" && (h.ActorID == nil || *h.ActorID != f.ActorID) {
				continue
			}
			if f.Action != "" && h.Action != f.Action {
				continue
			}
			if f.From != nil && h.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && h.CreatedAt.After(*f.To) {
				continue
			}
			h.Details = maps.Clone(h.Details)
			items = append(items, h)
		}
		return nil
	})
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return &repository.PageResult[model.DocumentHistory]{
		Items: window(items, f.Limit, f.Offset),
		Total: len(items),
	}, nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"docvault/internal/cache"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// CategoryInput holds the writable category attributes. A nil or empty
// ParentID makes the category a root.
type CategoryInput struct {
	Name        string
	Description string
	ParentID    *string
}

// CategoryService manages the category tree.
type CategoryService interface {
	Create(ctx context.Context, in CategoryInput) (*model.Category, error)
	// Update replaces every writable attribute. Reparenting under the
	// category itself or one of its descendants is rejected.
	Update(ctx context.Context, id string, in CategoryInput) (*model.Category, error)
	// Delete soft-deletes a category that no active document references.
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Category, error)
}

type categoryService struct {
	store repository.Store
	opts  Options
}

// NewCategoryService constructs a new CategoryService.
func NewCategoryService(store repository.Store, opts Options) CategoryService {
	return &categoryService{store: store, opts: opts.withDefaults()}
}

func (s *categoryService) Create(ctx context.Context, in CategoryInput) (cat *model.Category, err error) {
	ctx, span := startSpan(ctx, "CategoryService.Create")
	defer func() { endSpan(span, err) }()

	name, parentID, err := validateCategory(in)
	if err != nil {
		return nil, err
	}

	now := s.opts.now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if parentID != nil {
			if err := parentExists(ctx, tx, *parentID); err != nil {
				return err
			}
		}
		created, err := tx.Categories().Create(ctx, &model.Category{
			ID:          uuid.NewString(),
			Name:        name,
			Description: in.Description,
			ParentID:    parentID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		cat = created
		return err
	})
	if err != nil {
		return nil, txFailure("create category", err)
	}
	s.invalidate(ctx)
	return cat, nil
}

func (s *categoryService) Update(ctx context.Context, id string, in CategoryInput) (cat *model.Category, err error) {
	ctx, span := startSpan(ctx, "CategoryService.Update")
	defer func() { endSpan(span, err) }()

	if !validID(id) {
		return nil, &NotFoundError{Entity: "category", ID: id}
	}
	name, parentID, err := validateCategory(in)
	if err != nil {
		return nil, err
	}
	if parentID != nil && *parentID == id {
		return nil, invalid("parent_id", "cannot be the category itself")
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Categories().FindByID(ctx, id)
		if err != nil {
			return notFoundOr("category", id, err)
		}
		if parentID != nil {
			if err := parentExists(ctx, tx, *parentID); err != nil {
				return err
			}
			if err := rejectCycle(ctx, tx, id, *parentID); err != nil {
				return err
			}
		}
		next := *current
		next.Name = name
		next.Description = in.Description
		next.ParentID = parentID
		next.UpdatedAt = s.opts.now()
		updated, err := tx.Categories().Update(ctx, &next)
		if err != nil {
			return notFoundOr("category", id, err)
		}
		cat = updated
		return nil
	})
	if err != nil {
		return nil, txFailure("update category", err)
	}
	s.invalidate(ctx)
	return cat, nil
}

func (s *categoryService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "CategoryService.Delete")
	defer func() { endSpan(span, err) }()

	if !validID(id) {
		return &NotFoundError{Entity: "category", ID: id}
	}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Categories().FindByID(ctx, id); err != nil {
			return notFoundOr("category", id, err)
		}
		n, err := tx.Categories().CountDocuments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid("category_id", "still referenced by active documents")
		}
		now := s.opts.now()
		// Children become roots so no stored parent chain passes through a deleted row.
		if _, err := tx.Categories().DetachChildren(ctx, id, now); err != nil {
			return err
		}
		return notFoundOr("category", id, tx.Categories().SoftDelete(ctx, id, now))
	})
	if err != nil {
		return txFailure("delete category", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *categoryService) Get(ctx context.Context, id string) (cat *model.Category, err error) {
	ctx, span := startSpan(ctx, "CategoryService.Get")
	defer func() { endSpan(span, err) }()

	if !validID(id) {
		return nil, &NotFoundError{Entity: "category", ID: id}
	}
	cat, err = s.store.Categories().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "category", ID: id}
		}
		return nil, &TransactionError{Op: "load category", Err: err}
	}
	return cat, nil
}

func (s *categoryService) invalidate(ctx context.Context) {
	if err := s.opts.Cache.Invalidate(ctx, cache.Categories); err != nil {
		s.opts.Logger.WarnContext(ctx, "cache invalidation failed", "namespace", string(cache.Categories), "error", err)
	}
}

func validateCategory(in CategoryInput) (string, *string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", nil, invalid("name", "is required")
	}
	if utf8.RuneCountInString(name) > maxTitleLength {
		return "", nil, invalid("name", "must not exceed 255 characters")
	}
	if in.ParentID == nil || strings.TrimSpace(*in.ParentID) == "" {
		return name, nil, nil
	}
	parent := strings.TrimSpace(*in.ParentID)
	if !validID(parent) {
		return "", nil, invalid("parent_id", "must reference an existing category")
	}
	return name, &parent, nil
}

func parentExists(ctx context.Context, tx repository.Store, parentID string) error {
	if _, err := tx.Categories().FindByID(ctx, parentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("parent_id", "must reference an existing category")
		}
		return err
	}
	return nil
}

// rejectCycle walks up from parentID and fails if it reaches id.
func rejectCycle(ctx context.Context, tx repository.Store, id, parentID string) error {
	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id {
			return invalid("parent_id", "would create a cycle")
		}
		if seen[cur] {
			return nil
		}
		seen[cur] = true
		c, err := tx.Categories().FindByID(ctx, cur)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		if c.ParentID == nil {
			return nil
		}
		cur = *c.ParentID
	}
	return nil
}

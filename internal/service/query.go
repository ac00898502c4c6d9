package service

import (
	"context"
	"strconv"
	"strings"

	"docvault/internal/cache"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// QueryService serves the cached read side. Results never include
// soft-deleted documents and are ordered newest first.
type QueryService interface {
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Search matches term case-insensitively in title or description.
	Search(ctx context.Context, term string, limit, offset int) (*DocumentListResult, error)

	ByCategory(ctx context.Context, categoryID string, limit, offset int) (*DocumentListResult, error)
	ByOwner(ctx context.Context, ownerID string, limit, offset int) (*DocumentListResult, error)

	// Recent returns the n newest documents; n <= 0 selects the default.
	Recent(ctx context.Context, n int) ([]model.Document, error)

	// Categories returns every active category ordered by name.
	Categories(ctx context.Context) ([]model.Category, error)

	// CategoryTree nests the active categories under their parents.
	CategoryTree(ctx context.Context) ([]model.Category, error)
}

type queryService struct {
	store repository.Store
	opts  Options
}

// NewQueryService constructs a new QueryService.
func NewQueryService(store repository.Store, opts Options) QueryService {
	return &queryService{store: store, opts: opts.withDefaults()}
}

type pageFetch func(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error)

func (s *queryService) List(ctx context.Context, limit, offset int) (res *DocumentListResult, err error) {
	ctx, span := startSpan(ctx, "QueryService.List")
	defer func() { endSpan(span, err) }()

	return s.page(ctx, "list", cache.Params{}, limit, offset, s.store.Documents().List)
}

func (s *queryService) Search(ctx context.Context, term string, limit, offset int) (res *DocumentListResult, err error) {
	ctx, span := startSpan(ctx, "QueryService.Search")
	defer func() { endSpan(span, err) }()

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, invalid("search", "is required")
	}
	return s.page(ctx, "search", cache.Params{"q": strings.ToLower(term)}, limit, offset,
		func(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
			return s.store.Documents().Search(ctx, term, pq)
		})
}

func (s *queryService) ByCategory(ctx context.Context, categoryID string, limit, offset int) (res *DocumentListResult, err error) {
	ctx, span := startSpan(ctx, "QueryService.ByCategory")
	defer func() { endSpan(span, err) }()

	if !validID(categoryID) {
		return nil, invalid("category_id", "is invalid")
	}
	return s.page(ctx, "category", cache.Params{"category_id": categoryID}, limit, offset,
		func(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
			return s.store.Documents().ListByCategory(ctx, categoryID, pq)
		})
}

func (s *queryService) ByOwner(ctx context.Context, ownerID string, limit, offset int) (res *DocumentListResult, err error) {
	ctx, span := startSpan(ctx, "QueryService.ByOwner")
	defer func() { endSpan(span, err) }()

	if !validID(ownerID) {
		return nil, invalid("user_id", "is invalid")
	}
	return s.page(ctx, "owner", cache.Params{"user_id": ownerID}, limit, offset,
		func(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
			return s.store.Documents().ListByOwner(ctx, ownerID, pq)
		})
}

func (s *queryService) Recent(ctx context.Context, n int) (docs []model.Document, err error) {
	ctx, span := startSpan(ctx, "QueryService.Recent")
	defer func() { endSpan(span, err) }()

	if n <= 0 {
		n = s.opts.RecentDefault
	}
	if n > s.opts.MaxPageSize {
		n = s.opts.MaxPageSize
	}
	return cache.Remember(ctx, s.opts.Cache, cache.Documents, "recent", cache.Params{"n": strconv.Itoa(n)},
		func(ctx context.Context) ([]model.Document, error) {
			docs, err := s.store.Documents().Recent(ctx, n)
			if err != nil {
				return nil, &TransactionError{Op: "recent documents", Err: err}
			}
			if docs == nil {
				docs = []model.Document{}
			}
			return docs, nil
		})
}

func (s *queryService) Categories(ctx context.Context) (cats []model.Category, err error) {
	ctx, span := startSpan(ctx, "QueryService.Categories")
	defer func() { endSpan(span, err) }()

	return cache.Remember(ctx, s.opts.Cache, cache.Categories, "all", nil, s.allCategories)
}

func (s *queryService) CategoryTree(ctx context.Context) (tree []model.Category, err error) {
	ctx, span := startSpan(ctx, "QueryService.CategoryTree")
	defer func() { endSpan(span, err) }()

	return cache.Remember(ctx, s.opts.Cache, cache.Categories, "tree", nil,
		func(ctx context.Context) ([]model.Category, error) {
			flat, err := s.allCategories(ctx)
			if err != nil {
				return nil, err
			}
			tree := model.BuildCategoryTree(flat)
			if tree == nil {
				tree = []model.Category{}
			}
			return tree, nil
		})
}

func (s *queryService) allCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := s.store.Categories().ListAll(ctx)
	if err != nil {
		return nil, &TransactionError{Op: "list categories", Err: err}
	}
	if cats == nil {
		cats = []model.Category{}
	}
	return cats, nil
}

func (s *queryService) page(ctx context.Context, shape string, params cache.Params, limit, offset int, fetch pageFetch) (*DocumentListResult, error) {
	limit, offset = s.opts.page(limit, offset)
	params["limit"] = strconv.Itoa(limit)
	params["offset"] = strconv.Itoa(offset)

	return cache.Remember(ctx, s.opts.Cache, cache.Documents, shape, params,
		func(ctx context.Context) (*DocumentListResult, error) {
			res, err := fetch(ctx, repository.PageQuery{Limit: limit, Offset: offset})
			if err != nil {
				return nil, &TransactionError{Op: shape + " documents", Err: err}
			}
			items := res.Items
			if items == nil {
				items = []model.Document{}
			}
			return &DocumentListResult{Items: items, Total: res.Total, Limit: limit, Offset: offset}, nil
		})
}

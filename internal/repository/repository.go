package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a row does not exist or is soft-deleted.
	ErrNotFound = errors.New("repository: not found")
	// ErrCommit wraps a failure to commit a unit of work. Nothing from the
	// unit of work was persisted.
	ErrCommit = errors.New("repository: commit failed")
)

// Store groups the repositories and runs them inside one unit of work.
type Store interface {
	Documents() DocumentRepository
	Categories() CategoryRepository
	Histories() HistoryRepository
	Users() UserRepository

	// WithinTx runs fn against a Store bound to a single transaction.
	// An error from fn rolls back; a commit failure is reported wrapping ErrCommit.
	// fn must only use the Store it receives. Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// UserRepository mirrors actor ids issued by the identity provider so that
// foreign keys on documents and histories can reference them.
type UserRepository interface {
	// Ensure inserts the user id if it is not known yet.
	Ensure(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

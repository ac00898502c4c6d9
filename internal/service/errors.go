package service

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching. Concrete errors carry detail.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrStorage     = errors.New("storage failure")
	ErrTransaction = errors.New("transaction failed")
	// ErrForbidden is returned by callers enforcing the access policy.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing or soft-deleted entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError reports a blob store failure.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// TransactionError reports a database failure. When it comes from a
// mutation, neither the change nor its history entry was persisted.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error        { return e.Err }
func (e *TransactionError) Is(target error) bool { return target == ErrTransaction }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// txFailure keeps typed service errors raised inside a unit of work and
// wraps anything else as a TransactionError.
func txFailure(op string, err error) error {
	var (
		v *ValidationError
		n *NotFoundError
		s *StorageError
		t *TransactionError
	)
	if errors.As(err, &v) || errors.As(err, &n) || errors.As(err, &s) || errors.As(err, &t) {
		return err
	}
	return &TransactionError{Op: op, Err: err}
}

package core

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a store or the aggregation
// functions matches exactly one of these via errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage error")
)

var (
	ErrInvalidAmount = errors.New("amount must be a non-negative integer")
	ErrInvalidKind   = errors.New("kind must be expense or income")
	ErrInvalidDate   = errors.New("date must be a valid YYYY-MM-DD day")
	ErrInvalidLimit  = errors.New("limit must be greater than zero")
)

// ValidationError reports a caller-supplied value that violates a field constraint.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a delete position outside the current table.
type NotFoundError struct {
	Position int
	Length   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no transaction at position %d (table has %d rows)", e.Position, e.Length)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the durable medium.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err unless it is nil or already categorised.
func NewStorageError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Path: path, Err: err}
}

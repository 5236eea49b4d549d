// Package loaderr provides the structured error type used across the
// loading kernel for category-based classification and retry semantics.
package loaderr

import (
	"errors"
	"fmt"
)

// Category classifies a loading error for handling and reporting.
type Category string

const (
	// Kernel-level failures
	CategoryCancelled      Category = "cancelled"
	CategoryValueMissing   Category = "value_missing"
	CategoryElementMissing Category = "element_missing"

	// Transport failures
	CategoryConnectivity Category = "connectivity"
	CategoryStatus       Category = "status"
	CategoryDecode       Category = "decode"

	// Collaborator failures
	CategoryPersistence Category = "persistence"
	CategoryInternal    Category = "internal"
)

// Error is a structured error with category, retryability, and a cause.
type Error struct {
	Category  Category
	Message   string
	Cause     error
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(err error, category Category, message string) *Error {
	return &Error{Category: category, Message: message, Cause: err}
}

// WrapRetryable creates a new retryable Error that wraps an existing error.
func WrapRetryable(err error, category Category, message string) *Error {
	return &Error{Category: category, Message: message, Cause: err, Retryable: true}
}

// Cancelled reports the error raised when a load is cancelled with no
// previous value to fall back to.
func Cancelled() *Error {
	return New(CategoryCancelled, "load cancelled by caller")
}

// ValueMissing reports an unwrap of an empty optional.
func ValueMissing() *Error {
	return New(CategoryValueMissing, "expected value is missing")
}

// ElementMissing reports a lazy-sequence accessor miss at the given index.
func ElementMissing(index int) *Error {
	return &Error{
		Category: CategoryElementMissing,
		Message:  fmt.Sprintf("no element at index %d", index),
	}
}

// IsCategory checks whether err (or anything it wraps) carries the category.
func IsCategory(err error, category Category) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Category == category
	}
	return false
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, defaulting to
// CategoryInternal for foreign errors.
func GetCategory(err error) Category {
	var le *Error
	if errors.As(err, &le) {
		return le.Category
	}
	return CategoryInternal
}

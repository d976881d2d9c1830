// Package errors provides standardized error types and helpers for the kalima engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the engine can return.
var (
	// ErrNotFound indicates a verse, token, or record was not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalid indicates malformed input: a bad verse reference,
	// filter field, pattern template, or research-data container.
	ErrInvalid = errors.New("invalid input")
	// ErrStorage indicates a failure in the relational store.
	ErrStorage = errors.New("storage error")
	// ErrSearch indicates a failure in the search index.
	ErrSearch = errors.New("search error")
)

// NotFoundError reports a missing resource with context.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "verse", "token", "surah")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// InvalidError reports malformed input with context.
type InvalidError struct {
	Field   string // Field or argument that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *InvalidError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

func (e *InvalidError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalid
}

// StorageError wraps a failure from the relational store.
type StorageError struct {
	Operation string // Operation being performed (e.g., "upsert segment")
	Err       error  // Underlying error
}

func (e *StorageError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("storage: %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("storage: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// SearchError wraps a failure from the search index.
type SearchError struct {
	Operation string // Operation being performed (e.g., "parse query")
	Err       error  // Underlying error
}

func (e *SearchError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("search: %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("search: %v", e.Err)
}

func (e *SearchError) Unwrap() error { return ErrSearch }

// NewNotFound creates a NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewInvalid creates an InvalidError.
func NewInvalid(field, message string) *InvalidError {
	return &InvalidError{Field: field, Message: message}
}

// Invalidf creates an InvalidError with a formatted message.
func Invalidf(field, format string, args ...any) *InvalidError {
	return &InvalidError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps err as a StorageError for the given operation.
func Storage(operation string, err error) *StorageError {
	return &StorageError{Operation: operation, Err: err}
}

// Search wraps err as a SearchError for the given operation.
func Search(operation string, err error) *SearchError {
	return &SearchError{Operation: operation, Err: err}
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalid checks if an error is or wraps ErrInvalid.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsStorage checks if an error is or wraps ErrStorage.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsSearch checks if an error is or wraps ErrSearch.
func IsSearch(err error) bool {
	return errors.Is(err, ErrSearch)
}

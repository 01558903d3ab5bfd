package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkoutNotFound is returned when a workout cannot be located.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrForbidden is returned when the caller is authenticated but does not
	// own the workout it is acting on.
	ErrForbidden = errors.New("workout belongs to another user")
	// ErrNotAuthenticated is returned when an operation requires a signed-in
	// user and none is present.
	ErrNotAuthenticated = errors.New("no authenticated user")
)

// ValidationError marks malformed or missing caller input. Not retryable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StorageError wraps a backend failure. The core never retries these; the
// caller decides whether the operation is worth repeating.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the failed operation name.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Package apperr defines the error kinds shared by the stores, the scheduler
// and the presentation boundaries. Callers classify errors with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrImport      = errors.New("import error")
	ErrPersistence = errors.New("persistence error")
)

// Validation reports an empty required field or a malformed value.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound reports an operation on an unknown id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// Import reports a malformed import document.
func Import(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrImport, fmt.Sprintf(format, args...))
}

// Persistence wraps a storage failure for key.
func Persistence(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, key, err)
}

// Kind returns a short label for the error class, used by logs and HTTP
// responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrImport):
		return "import"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}

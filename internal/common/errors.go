package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound             = errors.New("not found")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// Auth errors. Every one of them collapses to "not authenticated" at the boundary.
	ErrInvalidToken     = errors.New("invalid token")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidSession   = errors.New("invalid session")

	// Asset ingestion errors.
	ErrNotAnImage       = errors.New("not an image")
	ErrStoreUnavailable = errors.New("asset store unavailable")
)

// ValidationError maps a field name to a human readable message.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError reports whether err carries field errors and returns them.
func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve, true
	}
	return nil, false
}

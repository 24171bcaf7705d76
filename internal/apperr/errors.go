package apperr

import "errors"

// Shared validation errors surfaced by the budgeting services. Entity-specific
// not-found errors live in their own packages.
var (
	// ErrUnauthorized is returned when a resource exists but is owned by
	// a different user than the caller.
	ErrUnauthorized = errors.New("unauthorized")
)

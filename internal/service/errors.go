package service

import "errors"

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes; validation failures carry their own type in the validation
// package.
var (
	// ErrUnauthenticated means no valid session or identity token was presented
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means the caller is authenticated but not allowed to act,
	// usually because they have no family or the resource belongs to another one
	ErrForbidden = errors.New("operation not permitted")

	// ErrNotFound means the referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict means the operation clashes with current state, such as
	// creating a family while already belonging to one
	ErrConflict = errors.New("conflict with current state")

	// ErrUnavailable means a dependency failed and retrying later may succeed
	ErrUnavailable = errors.New("service temporarily unavailable")
)

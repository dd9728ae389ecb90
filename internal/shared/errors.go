package shared

import "errors"

var (
	// ErrNotFound indicates the entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates an exclusivity constraint is already satisfied.
	ErrConflict = errors.New("conflict")
	// ErrInvalid indicates the request violates a domain invariant.
	ErrInvalid = errors.New("invalid request")
	// ErrUnauthorized indicates missing or failed authentication.
	ErrUnauthorized = errors.New("unauthorized")
)

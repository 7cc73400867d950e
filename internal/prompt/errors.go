package prompt

import "errors"

// Sentinel errors for the prompt package. Handlers map these onto HTTP
// status codes; everything else surfaces as an internal error.
var (
	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the caller lacks ownership of a personal
	// prompt or membership in a project-owned prompt's project.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a prompt or version id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrBadInput is returned when a request is missing required fields or
	// carries values outside the allowed enums.
	ErrBadInput = errors.New("bad input")
)

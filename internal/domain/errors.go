package domain

import "errors"

// Business failures are returned as these sentinels (wrapped with context);
// the HTTP layer maps them to status codes. Collaborator I/O failures are
// not in this list — they propagate as plain wrapped errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("unavailable")
	ErrInvalidRange      = errors.New("end date must be after start date")
	ErrInvalidTransition = errors.New("invalid status transition")
)

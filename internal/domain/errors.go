package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, min_pax above max_pax).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrUnauthorized is returned when a protected operation is called without a
// valid session, or when sign-in credentials are rejected.
// Handlers should map this to HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrConflict is returned when a write violates a uniqueness rule, such as
// two trips sharing a slug.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")

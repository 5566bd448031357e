// Package apperr defines the error classes shared across domain services.
package apperr

import "errors"

var (
	// ErrValidation marks requests rejected because required fields are
	// missing or malformed. Handlers map it to 400.
	ErrValidation = errors.New("validation failed")

	// ErrPattern marks failures caused by an invalid extraction rule
	// pattern. The underlying regexp error is wrapped alongside it.
	ErrPattern = errors.New("invalid pattern")

	// ErrUnauthorized marks missing or invalid credentials. Handlers map
	// it to 401.
	ErrUnauthorized = errors.New("unauthorized")
)

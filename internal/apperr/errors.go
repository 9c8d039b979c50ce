package apperr

import "errors"

var (
	// ErrValidation rejects malformed input before it touches storage.
	ErrValidation = errors.New("invalid request")

	// ErrNotFoundOrForbidden covers both a missing resource and a caller
	// without permission, so existence is never leaked to non-owners.
	ErrNotFoundOrForbidden = errors.New("not found or not allowed")

	// ErrNotFound is for lookups where absence is a legitimate, reportable
	// outcome (e.g. trashing a conversation that was never started).
	ErrNotFound = errors.New("not found")

	// ErrPersistence means the durable store was unreachable or failed.
	// It is surfaced generically and never retried by this layer.
	ErrPersistence = errors.New("storage unavailable")
)

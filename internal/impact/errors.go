package impact

import "errors"

// Sentinel errors for impact queries. Callers map them to transport status codes.
var (
	// ErrValidation indicates the query carried no non-blank seed.
	ErrValidation = errors.New("at least one non-blank seed is required")

	// ErrNotFound indicates no seed resolved to any node.
	ErrNotFound = errors.New("no matching nodes found")
)

package repository

import "errors"

// Sentinel kinds for store errors. Domain errors (not found, duplicate key)
// come from the types package.
var (
	ErrClosed         = errors.New("store closed")
	ErrUnknownBackend = errors.New("unknown store backend")
)

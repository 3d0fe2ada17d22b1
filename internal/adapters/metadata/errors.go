package metadata

import "errors"

// Sentinel kinds for metadata lookups. Transport, status and breaker failures
// wrap types.ErrUpstream instead.
var (
	ErrTitleNotFound = errors.New("title not found")
	ErrEmptyTitle    = errors.New("empty title")
)

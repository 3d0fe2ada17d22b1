package types

import "errors"

// Sentinel error kinds shared by the store, the service and the HTTP layer.
var (
	ErrValidation    = errors.New("validation failed")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrNotFound      = errors.New("not found")
	ErrMovieNotFound = errors.New("movie not found")
	ErrBadDateFormat = errors.New("bad datetime format")
	ErrInvalidRange  = errors.New("invalid datetime range")
	ErrUpstream      = errors.New("upstream failure")
)

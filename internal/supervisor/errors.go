package supervisor

import "errors"

// Sentinel errors returned by supervised services.
var (
	ErrServe    = errors.New("http server failed")
	ErrShutdown = errors.New("http server shutdown failed")
	ErrInterval = errors.New("ticker interval must be positive")
)

package service

import "errors"

// Sentinel kinds for service lifecycle errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoFetcher  = errors.New("metadata fetcher not configured")
)

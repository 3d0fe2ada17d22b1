package loadcheck

import "errors"

// Sentinel kinds for failed checks.
var (
	ErrNotReady       = errors.New("service not ready")
	ErrUnexpectedCode = errors.New("unexpected status code")
	ErrRankOrder      = errors.New("leaderboard violates dense ranking")
	ErrCountMismatch  = errors.New("leaderboard counts do not match submitted comments")
	ErrNoMovies       = errors.New("no movies available")
)

// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/marquee/internal/domain/attrs"
)

// Movie is a catalog entry created from a metadata lookup.
type Movie struct {
	ID         int64     `json:"id"`
	Attributes attrs.Bag `json:"attributes"`
	IMDbID     string    `json:"imdb_id"`
}

// AttributeBag implements attrs.Record.
func (m Movie) AttributeBag() attrs.Bag { return m.Attributes }

// RecordID implements attrs.Record.
func (m Movie) RecordID() int64 { return m.ID }

// Comment is a user comment attached to a movie.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	MovieID   int64     `json:"movie"`
}

// NewComment carries the fields needed to insert a comment.
// A zero CreatedAt means "now".
type NewComment struct {
	MovieID   int64
	Body      string
	CreatedAt time.Time
}

// MovieCount is the number of qualifying comments for a movie.
type MovieCount struct {
	MovieID int64
	Count   int
}

// LeaderboardEntry represents one row of the top movies leaderboard.
type LeaderboardEntry struct {
	MovieID       int64 `json:"movie_id"`
	TotalComments int   `json:"total_comments"`
	Rank          int   `json:"rank"`
}

// Window is an inclusive time range.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies in [From, To].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

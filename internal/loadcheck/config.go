package loadcheck

import "time"

// Config holds configuration for a load check run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Titles    []string      // Movie titles to create or reuse
	Comments  int           // Number of comments to submit
	Workers   int           // Number of concurrent workers
	Timeout   time.Duration // HTTP request timeout
	ClockSkew time.Duration // Slack added around the windowed /top check
	LogFile   string        // Log file for run output
	Verbose   bool          // Log every failed request
}

// Movie is the subset of a movie the check needs.
type Movie struct {
	ID         int64          `json:"id"`
	IMDbID     string         `json:"imdb_id"`
	Attributes map[string]any `json:"attributes"`
}

// Title returns the provider title of the movie, or "".
func (m Movie) Title() string {
	s, _ := m.Attributes["Title"].(string)
	return s
}

// Entry is one leaderboard row as served by /top.
type Entry struct {
	MovieID       int64 `json:"movie_id"`
	TotalComments int   `json:"total_comments"`
	Rank          int   `json:"rank"`
}

type commentRequest struct {
	MovieID int64  `json:"movie_id"`
	Body    string `json:"body"`
}

// Stats holds run statistics.
type Stats struct {
	MoviesCreated      int
	MoviesReused       int
	CommentsPlanned    int
	CommentsSubmitted  int
	CommentsSuccessful int
	CommentsFailed     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

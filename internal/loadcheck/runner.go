// Package loadcheck drives a running catalog service over HTTP: it seeds
// movies and comments concurrently and verifies the /top leaderboard.
package loadcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/marquee/pkg/logger"
)

// Run executes the complete check.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	titles := config.Titles
	if len(titles) == 0 {
		titles = DefaultTitles
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	log.Info(ctx, "starting marquee load check",
		logger.String("baseURL", config.BaseURL),
		logger.Int("titles", len(titles)),
		logger.Int("comments", config.Comments),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := NewHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service readiness
	if err := client.Ready(ctx); err != nil {
		return stats, err
	}

	// Step 2: Create or reuse movies
	movies, err := ensureMovies(ctx, client, titles, stats)
	if err != nil {
		return stats, err
	}

	// Step 3: Snapshot the leaderboard
	before, err := client.Top(ctx, nil, nil)
	if err != nil {
		return stats, fmt.Errorf("leaderboard snapshot failed: %w", err)
	}

	// Step 4: Submit comments concurrently
	seedStart := time.Now()
	accepted := submitComments(ctx, config, client, movies, stats)
	seedEnd := time.Now()

	// Step 5: Verify the all-time leaderboard
	after, err := client.Top(ctx, nil, nil)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(after)
	if err := VerifyDenseRanks(after); err != nil {
		return stats, err
	}
	if err := VerifyDeltas(before, after, accepted); err != nil {
		return stats, err
	}

	// Step 6: Verify the leaderboard of the seeding window
	skew := config.ClockSkew
	if skew <= 0 {
		skew = DefaultClockSkew
	}
	from, to, err := seedWindow(seedStart, seedEnd, skew)
	if err != nil {
		return stats, err
	}
	window, err := client.Top(ctx, &from, &to)
	if err != nil {
		return stats, fmt.Errorf("windowed leaderboard retrieval failed: %w", err)
	}
	if err := VerifyDenseRanks(window); err != nil {
		return stats, fmt.Errorf("windowed: %w", err)
	}
	if err := VerifyAtLeast(window, accepted); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, after)

	log.Info(ctx, "load check passed")
	return stats, nil
}

// displayFinalStats logs the run statistics and the head of the leaderboard.
func displayFinalStats(ctx context.Context, stats *Stats, board []Entry) {
	var successRate, commentsPerSecond float64
	if stats.CommentsSubmitted > 0 {
		successRate = float64(stats.CommentsSuccessful) / float64(stats.CommentsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		commentsPerSecond = float64(stats.CommentsSubmitted) / stats.Duration.Seconds()
	}

	log := logger.Get()
	log.Info(ctx, "final statistics",
		logger.Int("moviesCreated", stats.MoviesCreated),
		logger.Int("moviesReused", stats.MoviesReused),
		logger.Int("commentsSubmitted", stats.CommentsSubmitted),
		logger.Int("commentsSuccessful", stats.CommentsSuccessful),
		logger.Int("commentsFailed", stats.CommentsFailed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("commentsPerSecond", commentsPerSecond))

	for i := 0; i < len(board) && i < 10; i++ {
		e := board[i]
		log.Info(ctx, "top",
			logger.Int("rank", e.Rank),
			logger.Int64("movie_id", e.MovieID),
			logger.Int("total_comments", e.TotalComments))
	}
}

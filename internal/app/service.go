// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/marquee/internal/adapters/metadata"
	"github.com/okian/marquee/internal/adapters/repository"
	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/daterange"
	"github.com/okian/marquee/internal/domain/ranking"
	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// Service implements the API dependencies for the movie catalog.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	fetcher metadata.Fetcher

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the record store. Without it Start uses a MemoryStore.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFetcher sets the metadata fetcher used by CreateMovie.
func WithFetcher(f metadata.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service. Call Start before use.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the service for requests.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.fetcher == nil {
		return ErrNoFetcher
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "catalog service started")
	return nil
}

// Stop closes the store. It is safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping catalog service...")
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "catalog service stopped")
}

func (s *Service) backend() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// CreateMovie fetches title from the metadata provider and stores it.
func (s *Service) CreateMovie(ctx context.Context, title string) (types.Movie, error) {
	store, err := s.backend()
	if err != nil {
		return types.Movie{}, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return types.Movie{}, fmt.Errorf("%w: title is required", types.ErrValidation)
	}

	rec, err := s.fetcher.Fetch(ctx, title)
	switch {
	case err == nil:
	case errors.Is(err, metadata.ErrTitleNotFound):
		return types.Movie{}, fmt.Errorf("%w: %w", types.ErrNotFound, err)
	case errors.Is(err, types.ErrUpstream):
		return types.Movie{}, err
	default:
		return types.Movie{}, fmt.Errorf("%w: %w", types.ErrUpstream, err)
	}
	if rec.IMDbID == "" {
		return types.Movie{}, fmt.Errorf("%w: record for %q has no imdbID", types.ErrUpstream, title)
	}

	m, err := store.CreateMovie(ctx, rec.IMDbID, rec.Attributes)
	if err != nil {
		if errors.Is(err, types.ErrDuplicateKey) {
			s.logger.Debug(ctx, "duplicate movie", logger.String("imdb_id", rec.IMDbID))
		}
		return types.Movie{}, err
	}
	metrics.RecordMovieCreated()
	s.logger.Info(ctx, "movie created", logger.Int64("movie_id", m.ID), logger.String("imdb_id", m.IMDbID))
	return m, nil
}

// GetMovie returns one movie.
func (s *Service) GetMovie(ctx context.Context, id int64) (types.Movie, error) {
	store, err := s.backend()
	if err != nil {
		return types.Movie{}, err
	}
	return store.GetMovie(ctx, id)
}

// ListMovies returns movies filtered and ordered by q.
func (s *Service) ListMovies(ctx context.Context, q attrs.Query) ([]types.Movie, error) {
	store, err := s.backend()
	if err != nil {
		return nil, err
	}
	return store.ListMovies(ctx, q)
}

// UpdateMovie merges patch into the movie's attributes.
func (s *Service) UpdateMovie(ctx context.Context, id int64, patch attrs.Bag) (types.Movie, error) {
	store, err := s.backend()
	if err != nil {
		return types.Movie{}, err
	}
	m, err := store.MergeAttributes(ctx, id, patch)
	if err != nil {
		return types.Movie{}, err
	}
	s.logger.Info(ctx, "movie updated", logger.Int64("movie_id", id), logger.Int("keys", len(patch)))
	return m, nil
}

// DeleteMovie removes a movie and its comments.
func (s *Service) DeleteMovie(ctx context.Context, id int64) error {
	store, err := s.backend()
	if err != nil {
		return err
	}
	if err := store.DeleteMovie(ctx, id); err != nil {
		return err
	}
	metrics.RecordMovieDeleted()
	s.logger.Info(ctx, "movie deleted", logger.Int64("movie_id", id))
	return nil
}

// CreateComment attaches a comment to an existing movie.
func (s *Service) CreateComment(ctx context.Context, movieID int64, body string) (types.Comment, error) {
	store, err := s.backend()
	if err != nil {
		return types.Comment{}, err
	}
	if strings.TrimSpace(body) == "" {
		return types.Comment{}, fmt.Errorf("%w: body is required", types.ErrValidation)
	}

	c, err := store.CreateComment(ctx, types.NewComment{MovieID: movieID, Body: body})
	if err != nil {
		return types.Comment{}, err
	}
	metrics.RecordCommentCreated()
	s.logger.Debug(ctx, "comment created", logger.Int64("comment_id", c.ID), logger.Int64("movie_id", movieID))
	return c, nil
}

// ListComments returns every comment, or the comments of movieID oldest
// first. An unknown movieID is ErrNotFound.
func (s *Service) ListComments(ctx context.Context, movieID *int64) ([]types.Comment, error) {
	store, err := s.backend()
	if err != nil {
		return nil, err
	}
	if movieID != nil {
		if _, err := store.GetMovie(ctx, *movieID); err != nil {
			return nil, err
		}
	}
	return store.ListComments(ctx, movieID)
}

// Top returns the dense-ranked leaderboard of comment counts, restricted to
// the inclusive window [from, to] when both are given.
func (s *Service) Top(ctx context.Context, from, to string) ([]types.LeaderboardEntry, error) {
	start := time.Now()

	w, err := daterange.Parse(from, to)
	if err != nil {
		return nil, err
	}
	store, err := s.backend()
	if err != nil {
		return nil, err
	}

	counts, err := store.CommentCounts(ctx, w)
	if err != nil {
		return nil, err
	}
	entries := ranking.Dense(counts)

	metrics.RecordLeaderboardQuery(w != nil)
	metrics.RecordLeaderboardLatency(float64(time.Since(start).Milliseconds()))
	metrics.UpdateLeaderboardSize(len(entries))
	return entries, nil
}

// Ready reports whether the store can serve requests.
func (s *Service) Ready(ctx context.Context) error {
	store, err := s.backend()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	st, err := s.store.Stats(context.Background())
	if err != nil {
		stats["storeError"] = err.Error()
		return stats
	}
	stats["movies"] = st.Movies
	stats["comments"] = st.Comments

	metrics.UpdateTotalMovies(st.Movies)
	metrics.UpdateTotalComments(st.Comments)
	return stats
}

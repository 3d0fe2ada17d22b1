package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/ranking"
	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/pkg/metrics"
)

// MemoryStore is a Store kept entirely in process memory.
//
// A single RWMutex guards movies, comments and the imdb_id index, so the
// uniqueness check and insert, the movie existence check and comment insert,
// and the cascade delete each happen under one write lock. Reads take the
// read lock and therefore see one consistent snapshot.
type MemoryStore struct {
	mu       sync.RWMutex
	movies   map[int64]types.Movie
	byIMDb   map[string]int64
	comments map[int64]types.Comment
	// byMovie indexes comment ids per movie for cascade deletes and listing.
	byMovie map[int64][]int64

	nextMovieID   int64
	nextCommentID int64
	closed        bool

	now func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		movies:   make(map[int64]types.Movie),
		byIMDb:   make(map[string]int64),
		comments: make(map[int64]types.Comment),
		byMovie:  make(map[int64][]int64),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func recordUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
}

func recordQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
}

// CreateMovie implements Store.CreateMovie.
func (s *MemoryStore) CreateMovie(_ context.Context, imdbID string, attributes attrs.Bag) (types.Movie, error) {
	defer recordUpdate(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Movie{}, ErrClosed
	}

	if _, exists := s.byIMDb[imdbID]; exists {
		metrics.RecordErrorByComponent("repository", "duplicate_key")
		return types.Movie{}, types.ErrDuplicateKey
	}

	s.nextMovieID++
	m := types.Movie{ID: s.nextMovieID, IMDbID: imdbID, Attributes: attributes.Clone()}
	s.movies[m.ID] = m
	s.byIMDb[imdbID] = m.ID
	return cloneMovie(m), nil
}

// GetMovie implements Store.GetMovie.
func (s *MemoryStore) GetMovie(_ context.Context, id int64) (types.Movie, error) {
	defer recordQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.Movie{}, ErrClosed
	}

	m, ok := s.movies[id]
	if !ok {
		return types.Movie{}, types.ErrNotFound
	}
	return cloneMovie(m), nil
}

// ListMovies implements Store.ListMovies.
func (s *MemoryStore) ListMovies(_ context.Context, q attrs.Query) ([]types.Movie, error) {
	defer recordQuery(time.Now())

	s.mu.RLock()
	all := make([]types.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		all = append(all, m)
	}
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	out := attrs.Apply(all, q)
	for i := range out {
		out[i] = cloneMovie(out[i])
	}
	return out, nil
}

// MergeAttributes implements Store.MergeAttributes.
func (s *MemoryStore) MergeAttributes(_ context.Context, id int64, patch attrs.Bag) (types.Movie, error) {
	defer recordUpdate(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Movie{}, ErrClosed
	}

	m, ok := s.movies[id]
	if !ok {
		return types.Movie{}, types.ErrNotFound
	}
	m.Attributes = m.Attributes.Merge(patch)
	s.movies[id] = m
	return cloneMovie(m), nil
}

// DeleteMovie implements Store.DeleteMovie, removing the movie's comments in
// the same critical section.
func (s *MemoryStore) DeleteMovie(_ context.Context, id int64) error {
	defer recordUpdate(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	m, ok := s.movies[id]
	if !ok {
		return types.ErrNotFound
	}
	for _, cid := range s.byMovie[id] {
		delete(s.comments, cid)
	}
	delete(s.byMovie, id)
	delete(s.byIMDb, m.IMDbID)
	delete(s.movies, id)
	return nil
}

// CreateComment implements Store.CreateComment.
func (s *MemoryStore) CreateComment(_ context.Context, nc types.NewComment) (types.Comment, error) {
	defer recordUpdate(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Comment{}, ErrClosed
	}

	if _, ok := s.movies[nc.MovieID]; !ok {
		metrics.RecordErrorByComponent("repository", "movie_not_found")
		return types.Comment{}, types.ErrMovieNotFound
	}

	createdAt := nc.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	s.nextCommentID++
	c := types.Comment{
		ID:        s.nextCommentID,
		Body:      nc.Body,
		MovieID:   nc.MovieID,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
	s.comments[c.ID] = c
	s.byMovie[c.MovieID] = append(s.byMovie[c.MovieID], c.ID)
	return c, nil
}

// ListComments implements Store.ListComments.
func (s *MemoryStore) ListComments(_ context.Context, movieID *int64) ([]types.Comment, error) {
	defer recordQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	if movieID == nil {
		out := make([]types.Comment, 0, len(s.comments))
		for _, c := range s.comments {
			out = append(out, c)
		}
		slices.SortFunc(out, func(a, b types.Comment) int { return cmp.Compare(a.ID, b.ID) })
		return out, nil
	}

	ids := s.byMovie[*movieID]
	out := make([]types.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.comments[id])
	}
	slices.SortFunc(out, func(a, b types.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// CommentCounts implements Store.CommentCounts. The grouping pass runs under
// the read lock so the counts reflect a single snapshot.
func (s *MemoryStore) CommentCounts(_ context.Context, w *types.Window) ([]types.MovieCount, error) {
	defer recordQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	all := make([]types.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		all = append(all, c)
	}
	return ranking.Count(all, w), nil
}

// Stats implements Store.Stats.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, ErrClosed
	}
	return Stats{Movies: len(s.movies), Comments: len(s.comments)}, nil
}

// Ping implements Store.Ping.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.Close. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneMovie(m types.Movie) types.Movie {
	m.Attributes = m.Attributes.Clone()
	return m
}

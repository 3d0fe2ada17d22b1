// Package repository defines the record store for movies and comments and
// its in-memory and Postgres implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
)

// Store provides durable access to movies and comments.
//
// Every implementation must honour these contracts:
//   - imdb_id uniqueness is enforced atomically; of two concurrent creates with
//     the same id exactly one succeeds and the other gets types.ErrDuplicateKey.
//   - deleting a movie atomically deletes all of its comments; a comment
//     created concurrently against that movie either fails with
//     types.ErrMovieNotFound or is removed with the movie, never orphaned.
//   - CommentCounts is computed over one consistent snapshot.
type Store interface {
	// CreateMovie inserts a movie. Returns types.ErrDuplicateKey when imdbID exists.
	CreateMovie(ctx context.Context, imdbID string, attributes attrs.Bag) (types.Movie, error)

	// GetMovie returns types.ErrNotFound when the id is unknown.
	GetMovie(ctx context.Context, id int64) (types.Movie, error)

	// ListMovies returns movies passing q's filter in q's order.
	ListMovies(ctx context.Context, q attrs.Query) ([]types.Movie, error)

	// MergeAttributes writes patch over the movie's attributes and returns the
	// updated movie. Returns types.ErrNotFound when the id is unknown.
	MergeAttributes(ctx context.Context, id int64, patch attrs.Bag) (types.Movie, error)

	// DeleteMovie removes a movie and its comments. Returns types.ErrNotFound
	// when the id is unknown.
	DeleteMovie(ctx context.Context, id int64) error

	// CreateComment inserts a comment. Returns types.ErrMovieNotFound when the
	// movie does not exist; nothing is written in that case.
	CreateComment(ctx context.Context, c types.NewComment) (types.Comment, error)

	// ListComments returns all comments ordered by id, or, when movieID is set,
	// the comments of that movie ordered by created_at then id. An unknown
	// movie yields an empty list.
	ListComments(ctx context.Context, movieID *int64) ([]types.Comment, error)

	// CommentCounts returns per-movie comment counts, restricted to w when set.
	// Movies without qualifying comments are omitted.
	CommentCounts(ctx context.Context, w *types.Window) ([]types.MovieCount, error)

	// Stats returns the number of movies and comments.
	Stats(ctx context.Context) (Stats, error)

	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Stats summarises store contents.
type Stats struct {
	Movies   int
	Comments int
}

// Store backends accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Open returns the store named by backend. dsn and opts apply to Postgres only.
func Open(ctx context.Context, backend, dsn string, opts ...PostgresOption) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendPostgres:
		s, err := OpenPostgres(ctx, dsn, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

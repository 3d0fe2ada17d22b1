package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/pkg/metrics"
)

// Postgres SQLSTATE codes translated into domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// schema is applied on startup. Uniqueness of imdb_id and the comment cascade
// are enforced by the database, not by the application.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id         BIGSERIAL PRIMARY KEY,
		imdb_id    TEXT NOT NULL UNIQUE,
		attributes JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         BIGSERIAL PRIMARY KEY,
		body       TEXT NOT NULL,
		movie_id   BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS comments_movie_created_idx ON comments (movie_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS comments_created_idx ON comments (created_at)`,
}

// PostgresStore persists movies and comments in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. The schema is not applied.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to dsn, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates tables and indexes when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func scanMovie(row pgx.Row) (types.Movie, error) {
	var (
		m   types.Movie
		raw []byte
	)
	if err := row.Scan(&m.ID, &m.IMDbID, &raw); err != nil {
		return types.Movie{}, err
	}
	bag, err := attrs.ParseBag(raw)
	if err != nil {
		return types.Movie{}, fmt.Errorf("decode attributes of movie %d: %w", m.ID, err)
	}
	m.Attributes = bag
	return m, nil
}

// CreateMovie implements Store.CreateMovie.
func (s *PostgresStore) CreateMovie(ctx context.Context, imdbID string, attributes attrs.Bag) (types.Movie, error) {
	defer recordUpdate(time.Now())

	if attributes == nil {
		attributes = attrs.Bag{}
	}
	raw, err := json.Marshal(attributes)
	if err != nil {
		return types.Movie{}, fmt.Errorf("encode attributes: %w", err)
	}

	const q = `INSERT INTO movies (imdb_id, attributes) VALUES ($1, $2::jsonb)
	           RETURNING id, imdb_id, attributes`
	m, err := scanMovie(s.pool.QueryRow(ctx, q, imdbID, raw))
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			metrics.RecordErrorByComponent("repository", "duplicate_key")
			return types.Movie{}, types.ErrDuplicateKey
		}
		return types.Movie{}, err
	}
	return m, nil
}

// GetMovie implements Store.GetMovie.
func (s *PostgresStore) GetMovie(ctx context.Context, id int64) (types.Movie, error) {
	defer recordQuery(time.Now())

	const q = `SELECT id, imdb_id, attributes FROM movies WHERE id = $1`
	m, err := scanMovie(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Movie{}, types.ErrNotFound
	}
	return m, err
}

// movieListSQL renders q as SQL. A missing key yields SQL NULL, which Postgres
// sorts last ascending and first descending, the same as attrs.Sort.
func movieListSQL(q attrs.Query) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, imdb_id, attributes FROM movies`)
	if q.Filter != nil {
		args = append(args, q.Filter.Field, q.Filter.Value)
		sb.WriteString(` WHERE attributes -> $1::text = to_jsonb($2::text)`)
	}
	sb.WriteString(` ORDER BY `)
	if q.Sort != nil {
		args = append(args, q.Sort.Field)
		sb.WriteString(`attributes -> $` + strconv.Itoa(len(args)) + `::text`)
		if q.Sort.Dir == attrs.Desc {
			sb.WriteString(` DESC, `)
		} else {
			sb.WriteString(` ASC, `)
		}
	}
	sb.WriteString(`id ASC`)
	return sb.String(), args
}

// ListMovies implements Store.ListMovies.
func (s *PostgresStore) ListMovies(ctx context.Context, q attrs.Query) ([]types.Movie, error) {
	defer recordQuery(time.Now())

	sql, args := movieListSQL(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MergeAttributes implements Store.MergeAttributes with a single jsonb
// concatenation, so concurrent merges never lose keys.
func (s *PostgresStore) MergeAttributes(ctx context.Context, id int64, patch attrs.Bag) (types.Movie, error) {
	defer recordUpdate(time.Now())

	if patch == nil {
		patch = attrs.Bag{}
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return types.Movie{}, fmt.Errorf("encode attributes: %w", err)
	}

	const q = `UPDATE movies SET attributes = attributes || $2::jsonb
	           WHERE id = $1
	           RETURNING id, imdb_id, attributes`
	m, err := scanMovie(s.pool.QueryRow(ctx, q, id, raw))
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Movie{}, types.ErrNotFound
	}
	return m, err
}

// DeleteMovie implements Store.DeleteMovie. Comments go with the movie through
// the ON DELETE CASCADE foreign key.
func (s *PostgresStore) DeleteMovie(ctx context.Context, id int64) error {
	defer recordUpdate(time.Now())

	tag, err := s.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// CreateComment implements Store.CreateComment. The foreign key rejects
// comments for missing movies, including ones deleted concurrently.
func (s *PostgresStore) CreateComment(ctx context.Context, nc types.NewComment) (types.Comment, error) {
	defer recordUpdate(time.Now())

	var createdAt *time.Time
	if !nc.CreatedAt.IsZero() {
		t := nc.CreatedAt.UTC()
		createdAt = &t
	}

	const q = `INSERT INTO comments (body, movie_id, created_at)
	           VALUES ($1, $2, COALESCE($3::timestamptz, now()))
	           RETURNING id, body, movie_id, created_at`
	var c types.Comment
	err := s.pool.QueryRow(ctx, q, nc.Body, nc.MovieID, createdAt).
		Scan(&c.ID, &c.Body, &c.MovieID, &c.CreatedAt)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			metrics.RecordErrorByComponent("repository", "movie_not_found")
			return types.Comment{}, types.ErrMovieNotFound
		}
		return types.Comment{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// ListComments implements Store.ListComments.
func (s *PostgresStore) ListComments(ctx context.Context, movieID *int64) ([]types.Comment, error) {
	defer recordQuery(time.Now())

	var (
		rows pgx.Rows
		err  error
	)
	if movieID == nil {
		rows, err = s.pool.Query(ctx,
			`SELECT id, body, movie_id, created_at FROM comments ORDER BY id ASC`)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, body, movie_id, created_at FROM comments
			 WHERE movie_id = $1
			 ORDER BY created_at ASC, id ASC`, *movieID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Comment{}
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.Body, &c.MovieID, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// CommentCounts implements Store.CommentCounts. A single statement reads one
// snapshot; ranking happens in the domain layer.
func (s *PostgresStore) CommentCounts(ctx context.Context, w *types.Window) ([]types.MovieCount, error) {
	defer recordQuery(time.Now())

	var (
		rows pgx.Rows
		err  error
	)
	if w == nil {
		rows, err = s.pool.Query(ctx,
			`SELECT movie_id, count(*) FROM comments GROUP BY movie_id ORDER BY movie_id`)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT movie_id, count(*) FROM comments
			 WHERE created_at BETWEEN $1 AND $2
			 GROUP BY movie_id ORDER BY movie_id`, w.From, w.To)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.MovieCount{}
	for rows.Next() {
		var (
			mc types.MovieCount
			n  int64
		)
		if err := rows.Scan(&mc.MovieID, &n); err != nil {
			return nil, err
		}
		mc.Count = int(n)
		out = append(out, mc)
	}
	return out, rows.Err()
}

// Stats implements Store.Stats.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var movies, comments int64
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT count(*) FROM movies), (SELECT count(*) FROM comments)`).
		Scan(&movies, &comments)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Movies: int(movies), Comments: int(comments)}, nil
}

// Ping implements Store.Ping.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.Close.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

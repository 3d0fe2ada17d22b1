// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateMovie(ctx context.Context, title string) (types.Movie, error)
	GetMovie(ctx context.Context, id int64) (types.Movie, error)
	ListMovies(ctx context.Context, q attrs.Query) ([]types.Movie, error)
	UpdateMovie(ctx context.Context, id int64, patch attrs.Bag) (types.Movie, error)
	DeleteMovie(ctx context.Context, id int64) error

	CreateComment(ctx context.Context, movieID int64, body string) (types.Comment, error)
	ListComments(ctx context.Context, movieID *int64) ([]types.Comment, error)

	// Top returns the dense-ranked leaderboard for the optional window.
	Top(ctx context.Context, from, to string) ([]types.LeaderboardEntry, error)

	// Ready reports whether the backing store answers.
	Ready(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	moviesHandler   *MoviesHandler
	commentsHandler *CommentsHandler
	topHandler      *TopHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler

	origins    []string
	rateLimit  int
	rateWindow time.Duration
	log        logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAllowedOrigins restricts CORS to origins. The default allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithRateLimit caps each client IP at requests per window. A
// non-positive requests or window leaves the router unlimited.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		if requests > 0 && window > 0 {
			s.rateLimit, s.rateWindow = requests, window
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{origins: []string{"*"}, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.moviesHandler = NewMoviesHandler(deps, s.log)
	s.commentsHandler = NewCommentsHandler(deps, s.log)
	s.topHandler = NewTopHandler(deps, s.log)
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	return s
}

// Router returns a chi router with the base middleware and every API route.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	SetupRouter(r, s.origins...)
	if s.rateLimit > 0 {
		r.Use(httprate.Limit(s.rateLimit, s.rateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, messageResponse{Message: msgTooManyRequests})
			}),
		))
	}
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/movies", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.moviesHandler.HandleList, "movies"))
		r.Post("/", MetricsMiddleware(s.moviesHandler.HandleCreate, "movies"))
		r.Get("/{id}", MetricsMiddleware(s.moviesHandler.HandleGet, "movie"))
		r.Put("/{id}", MetricsMiddleware(s.moviesHandler.HandleUpdate, "movie"))
		r.Delete("/{id}", MetricsMiddleware(s.moviesHandler.HandleDelete, "movie"))
	})
	r.Route("/comments", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.commentsHandler.HandleList, "comments"))
		r.Post("/", MetricsMiddleware(s.commentsHandler.HandleCreate, "comments"))
	})
	r.Get("/top", MetricsMiddleware(s.topHandler.HandleTop, "top"))
}

// SetupRouter attaches base middlewares and JSON fallbacks.
// It must be called before registering any routes.
func SetupRouter(r chi.Router, allowedOrigins ...string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(RequestIDMiddleware(RequestIDHeader))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: msgRouteNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, messageResponse{Message: msgMethodNotAllowed})
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as a message body. Unclassified errors are logged
// and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, l logger.Logger, err error, onInvalid string) {
	status, msg := classify(err, onInvalid)
	if status >= http.StatusInternalServerError {
		l.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, status, messageResponse{Message: msg})
}

// decodeBody decodes a JSON request body into dst. An empty body leaves dst
// untouched so field validation reports what is missing.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

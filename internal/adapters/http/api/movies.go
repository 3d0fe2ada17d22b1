package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/marquee/internal/domain/attrs"
	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/internal/validation"
	"github.com/okian/marquee/pkg/logger"
)

type createMovieRequest struct {
	Title string `json:"title" validate:"required"`
}

type updateMovieRequest struct {
	Data attrs.Bag `json:"data" validate:"required"`
}

// MoviesHandler serves the /movies resource.
type MoviesHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewMoviesHandler creates a new movies handler.
func NewMoviesHandler(deps Dependencies, l logger.Logger) *MoviesHandler {
	return &MoviesHandler{deps: deps, log: l}
}

// HandleList handles GET /movies with optional filter_by/filter and
// order_by/order parameters.
func (h *MoviesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query()
	q := attrs.ParseQuery(p.Get("filter_by"), p.Get("filter"), p.Get("order_by"), p.Get("order"))

	movies, err := h.deps.ListMovies(r.Context(), q)
	if err != nil {
		writeError(w, r, h.log, Wrap("api.movies.list", err), msgBadBody)
		return
	}
	if movies == nil {
		movies = []types.Movie{}
	}
	writeJSON(w, http.StatusOK, movies)
}

// HandleCreate handles POST /movies.
func (h *MoviesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.movies.create"

	var req createMovieRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, r, h.log, err, msgNoTitle)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, h.log, WrapKind(op, types.ErrValidation, err), msgNoTitle)
		return
	}

	m, err := h.deps.CreateMovie(r.Context(), req.Title)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgNoTitle)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleGet handles GET /movies/{id}.
func (h *MoviesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.movies.get"

	id, err := movieID(r, op)
	if err != nil {
		writeError(w, r, h.log, err, msgBadBody)
		return
	}
	m, err := h.deps.GetMovie(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgBadBody)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HandleUpdate handles PUT /movies/{id}. The movie must exist before the
// body is looked at; data keys are merged into its attributes.
func (h *MoviesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.movies.update"

	id, err := movieID(r, op)
	if err != nil {
		writeError(w, r, h.log, err, msgBadBody)
		return
	}
	if _, err := h.deps.GetMovie(r.Context(), id); err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgBadBody)
		return
	}

	var req updateMovieRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, r, h.log, err, msgBadBody)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, h.log, WrapKind(op, ErrBadRequest, err), msgBadBody)
		return
	}

	if _, err := h.deps.UpdateMovie(r.Context(), id, req.Data); err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgBadBody)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Movie with id %d updated successfully.", id),
	})
}

// HandleDelete handles DELETE /movies/{id}.
func (h *MoviesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.movies.delete"

	id, err := movieID(r, op)
	if err != nil {
		writeError(w, r, h.log, err, msgBadBody)
		return
	}
	if err := h.deps.DeleteMovie(r.Context(), id); err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgBadBody)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Movie with id %d has been deleted.", id),
	})
}

// movieID reads the {id} path parameter. A malformed id cannot name an
// existing movie, so it is reported as not found.
func movieID(r *http.Request, op string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, WrapKind(op, types.ErrNotFound, err)
	}
	return id, nil
}

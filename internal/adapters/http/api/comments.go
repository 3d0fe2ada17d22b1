package api

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/internal/validation"
	"github.com/okian/marquee/pkg/logger"
)

// flexID accepts a movie id given as a JSON number or a numeric string.
type flexID struct {
	set   bool
	valid bool
	id    int64
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	f.set = true

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		f.id, f.valid = id, true
	}
	return nil
}

type createCommentRequest struct {
	MovieID flexID `json:"movie_id"`
	Body    string `json:"body" validate:"required"`
}

// CommentsHandler serves the /comments resource.
type CommentsHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewCommentsHandler creates a new comments handler.
func NewCommentsHandler(deps Dependencies, l logger.Logger) *CommentsHandler {
	return &CommentsHandler{deps: deps, log: l}
}

// HandleList handles GET /comments. With movie_id only that movie's
// comments are returned, oldest first, and an unknown movie is a 404.
func (h *CommentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.comments.list"

	var movieID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("movie_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, h.log, WrapKind(op, types.ErrNotFound, err), msgBadBody)
			return
		}
		movieID = &id
	}

	comments, err := h.deps.ListComments(r.Context(), movieID)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgBadBody)
		return
	}
	if comments == nil {
		comments = []types.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleCreate handles POST /comments. The movie is resolved before the
// comment body is validated.
func (h *CommentsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.comments.create"

	var req createCommentRequest
	if err := decodeBody(w, r, op, &req); err != nil {
		writeError(w, r, h.log, err, msgBodyRequired)
		return
	}
	if !req.MovieID.valid {
		writeError(w, r, h.log, NewKind(op, types.ErrMovieNotFound), msgBodyRequired)
		return
	}
	if _, err := h.deps.GetMovie(r.Context(), req.MovieID.id); err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgBodyRequired)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, h.log, WrapKind(op, types.ErrValidation, err), msgBodyRequired)
		return
	}

	c, err := h.deps.CreateComment(r.Context(), req.MovieID.id, req.Body)
	if err != nil {
		writeError(w, r, h.log, Wrap(op, err), msgBodyRequired)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

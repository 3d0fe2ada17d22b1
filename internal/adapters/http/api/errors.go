package api

import (
	"errors"
	"net/http"

	"github.com/okian/marquee/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrRoute      = errors.New("no such route")
)

// Fixed response messages.
const (
	msgNoTitle          = "No field title"
	msgDuplicate        = "Movie exist in db."
	msgMovieNotFound    = "Movie not found."
	msgBodyRequired     = "Comment body is required."
	msgBadDate          = "Bad datetime format"
	msgInvalidRange     = "Invalid datetime range"
	msgBadBody          = "Invalid request body."
	msgUpstream         = "Upstream metadata lookup failed."
	msgInternal         = "Internal server error."
	msgRouteNotFound    = "Not found."
	msgMethodNotAllowed = "Method not allowed."
	msgTooManyRequests  = "Too many requests."
)

// Error records the handler operation and error kind of a failed request.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// classify maps an error to its HTTP status and response message. onInvalid
// is used for validation failures so each handler can name what is missing.
func classify(err error, onInvalid string) (int, string) {
	switch {
	case errors.Is(err, types.ErrBadDateFormat):
		return http.StatusBadRequest, msgBadDate
	case errors.Is(err, types.ErrInvalidRange):
		return http.StatusBadRequest, msgInvalidRange
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, onInvalid
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, msgBadBody
	case errors.Is(err, types.ErrDuplicateKey):
		return http.StatusConflict, msgDuplicate
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrMovieNotFound):
		return http.StatusNotFound, msgMovieNotFound
	case errors.Is(err, ErrRoute):
		return http.StatusNotFound, msgRouteNotFound
	case errors.Is(err, types.ErrUpstream):
		return http.StatusBadGateway, msgUpstream
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

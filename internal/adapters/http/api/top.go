package api

import (
	"net/http"

	"github.com/okian/marquee/internal/domain/types"
	"github.com/okian/marquee/pkg/logger"
)

// TopHandler serves the comment-count leaderboard.
type TopHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewTopHandler creates a new leaderboard handler.
func NewTopHandler(deps Dependencies, l logger.Logger) *TopHandler {
	return &TopHandler{deps: deps, log: l}
}

// HandleTop handles GET /top?dateFrom=&dateTo=. Both bounds use the
// "2006-01-02 15:04:05" layout; omitting both ranks all comments.
func (h *TopHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.deps.Top(r.Context(), q.Get("dateFrom"), q.Get("dateTo"))
	if err != nil {
		writeError(w, r, h.log, Wrap("api.top", err), msgBadBody)
		return
	}
	if entries == nil {
		entries = []types.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

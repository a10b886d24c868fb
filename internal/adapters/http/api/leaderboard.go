package api

import (
	"context"
	"net/http"

	"github.com/okian/foosrank/internal/domain/rating"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, d rating.Discipline, n int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type leaderboardResponse struct {
	Discipline rating.Discipline `json:"discipline"`
	Entries    []Entry           `json:"entries"`
}

// HandleGetLeaderboard handles GET /leaderboard?discipline=solo|team&limit=N requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"

	d := rating.DisciplineSolo
	if raw := r.URL.Query().Get("discipline"); raw != "" {
		parsed, err := rating.ParseDiscipline(raw)
		if err != nil {
			writeFailure(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		d = parsed
	}
	n, err := parseLimit(r, defaultLeaderboardLimit, h.maxLimit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	entries, err := h.deps.TopN(r.Context(), d, n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Discipline: d, Entries: entries})
}

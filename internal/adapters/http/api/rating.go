package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/foosrank/internal/domain/rating"
)

// RatingDependencies defines the interface for single-participant lookups.
type RatingDependencies interface {
	Rank(ctx context.Context, d rating.Discipline, id string) (Entry, error)
}

// RatingHandler handles rating requests.
type RatingHandler struct {
	deps RatingDependencies
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingDependencies) *RatingHandler {
	return &RatingHandler{deps: deps}
}

type ratingResponse struct {
	Discipline rating.Discipline `json:"discipline"`
	Entry
}

// HandleGetRating handles GET /rating/{discipline}/{participant_id} requests.
func (h *RatingHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rating"
	d, err := rating.ParseDiscipline(r.PathValue("discipline"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	id := strings.TrimSpace(r.PathValue("participant_id"))
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}

	entry, err := h.deps.Rank(r.Context(), d, id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{Discipline: d, Entry: entry})
}

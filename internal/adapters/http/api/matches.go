package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/foosrank/internal/app"
	"github.com/okian/foosrank/internal/domain/model"
	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/okian/foosrank/pkg/logger"
)

// MatchDependencies defines the match intake operations.
type MatchDependencies interface {
	Submit(ctx context.Context, m model.Match) (service.SubmitStatus, error)
	Preview(ctx context.Context, m model.Match) (rating.Outcome, error)
}

// MatchesHandler handles match submission and preview.
type MatchesHandler struct {
	deps   MatchDependencies
	newID  func() string
	logger logger.Logger
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies, newID func() string, l logger.Logger) *MatchesHandler {
	return &MatchesHandler{deps: deps, newID: newID, logger: l}
}

func (h *MatchesHandler) decode(r *http.Request, op string) (model.Match, error) {
	var req matchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return model.Match{}, WrapKind(op, ErrBadRequest, err)
	}
	m, err := req.toMatch()
	if err != nil {
		return model.Match{}, WrapKind(op, ErrBadRequest, err)
	}
	if m.ID == "" {
		m.ID = h.newID()
	}
	return m, nil
}

// HandlePostMatch handles POST /matches requests.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_match"
	m, err := h.decode(r, op)
	if err != nil {
		writeFailure(w, err)
		return
	}

	status, err := h.deps.Submit(r.Context(), m)
	if err != nil {
		if code, _ := statusFor(err); code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
			h.logger.Error(r.Context(), "submit failed", logger.String("match_id", m.ID), logger.Error(err))
		}
		writeFailure(w, Wrap(op, err))
		return
	}
	if status == service.SubmitDuplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: string(status), MatchID: m.ID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: string(status), MatchID: m.ID})
}

type participantChange struct {
	ParticipantID string      `json:"participant_id"`
	Side          rating.Side `json:"side"`
	rating.Change
}

type previewResponse struct {
	MatchID    string              `json:"match_id"`
	Discipline rating.Discipline   `json:"discipline"`
	Series     rating.SeriesResult `json:"series"`
	TeamModel  rating.TeamModel    `json:"team_model,omitempty"`
	Changes    []participantChange `json:"changes"`
}

// HandlePreview handles POST /matches/preview requests: the outcome the
// match would have against current ratings, without recording it.
func (h *MatchesHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview_match"
	m, err := h.decode(r, op)
	if err != nil {
		writeFailure(w, err)
		return
	}

	out, err := h.deps.Preview(r.Context(), m)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	resp := previewResponse{
		MatchID:    m.ID,
		Discipline: out.Discipline,
		Series:     out.Series,
		TeamModel:  out.TeamModel,
		Changes:    make([]participantChange, 0, len(out.SideA)+len(out.SideB)),
	}
	for i, c := range out.SideA {
		resp.Changes = append(resp.Changes, participantChange{ParticipantID: m.TeamA[i], Side: rating.SideA, Change: c})
	}
	for i, c := range out.SideB {
		resp.Changes = append(resp.Changes, participantChange{ParticipantID: m.TeamB[i], Side: rating.SideB, Change: c})
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/foosrank/internal/domain/types"
)

// HistoryDependencies defines the interface for rating history lookups.
type HistoryDependencies interface {
	History(ctx context.Context, id string, limit int) ([]types.HistoryEntry, error)
}

// HistoryHandler handles rating history requests.
type HistoryHandler struct {
	deps     HistoryDependencies
	maxLimit int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxLimit int) *HistoryHandler {
	return &HistoryHandler{deps: deps, maxLimit: maxLimit}
}

type historyResponse struct {
	ParticipantID string               `json:"participant_id"`
	History       []types.HistoryEntry `json:"history"`
}

// HandleGetHistory handles GET /history/{participant_id}?limit=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	id := strings.TrimSpace(r.PathValue("participant_id"))
	if id == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	n, err := parseLimit(r, defaultHistoryLimit, h.maxLimit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	hist, err := h.deps.History(r.Context(), id, n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{ParticipantID: id, History: hist})
}

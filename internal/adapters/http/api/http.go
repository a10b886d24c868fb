// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/foosrank/internal/adapters/repository"
	service "github.com/okian/foosrank/internal/app"
	"github.com/okian/foosrank/internal/domain/model"
	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/okian/foosrank/internal/domain/types"
	"github.com/okian/foosrank/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchDependencies
	LeaderboardDependencies
	RatingDependencies
	HistoryDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchesHandler     *MatchesHandler
	leaderboardHandler *LeaderboardHandler
	ratingHandler      *RatingHandler
	historyHandler     *HistoryHandler
	limiter            *ClientRateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		maxHistoryLimit:     defaultMaxHistoryLimit,
		newID:               uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}

	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		matchesHandler:     NewMatchesHandler(deps, o.newID, o.logger),
		leaderboardHandler: NewLeaderboardHandler(deps, o.maxLeaderboardLimit),
		ratingHandler:      NewRatingHandler(deps),
		historyHandler:     NewHistoryHandler(deps, o.maxHistoryLimit),
		limiter:            o.limiter,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /matches", MetricsMiddleware(RateLimitMiddleware(s.matchesHandler.HandlePostMatch, s.limiter), "matches"))
	mux.HandleFunc("POST /matches/preview", MetricsMiddleware(s.matchesHandler.HandlePreview, "matches_preview"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rating/{discipline}/{participant_id}", MetricsMiddleware(s.ratingHandler.HandleGetRating, "rating"))
	mux.HandleFunc("GET /history/{participant_id}", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
}

// matchRequest mirrors the OpenAPI schema for POST /matches.
type matchRequest struct {
	MatchID    string   `json:"match_id"`
	Discipline string   `json:"discipline"`
	TeamA      []string `json:"team_a"`
	TeamB      []string `json:"team_b"`
	Winners    []string `json:"winners"`
	BestOf     int      `json:"best_of"`
	TeamModel  string   `json:"team_model"`
	PlayedAt   string   `json:"played_at"`
}

// toMatch converts the request into a domain match. Shape checks beyond
// parsing are left to the service.
func (req matchRequest) toMatch() (model.Match, error) {
	d, err := rating.ParseDiscipline(req.Discipline)
	if err != nil {
		return model.Match{}, err
	}
	winners := make([]rating.Side, len(req.Winners))
	for i, w := range req.Winners {
		side, err := rating.ParseSide(w)
		if err != nil {
			return model.Match{}, fmt.Errorf("winners[%d]: %w", i, err)
		}
		winners[i] = side
	}
	bestOf := req.BestOf
	if bestOf == 0 {
		bestOf = rating.BestOfOne
		if len(winners) > 1 {
			bestOf = rating.BestOfThree
		}
	}
	var tm rating.TeamModel
	if strings.TrimSpace(req.TeamModel) != "" {
		if tm, err = rating.ParseTeamModel(req.TeamModel); err != nil {
			return model.Match{}, err
		}
	}
	var playedAt time.Time
	if strings.TrimSpace(req.PlayedAt) != "" {
		if playedAt, err = time.Parse(time.RFC3339, req.PlayedAt); err != nil {
			return model.Match{}, errors.New("invalid played_at; must be RFC3339")
		}
	}
	return model.Match{
		ID:         strings.TrimSpace(req.MatchID),
		Discipline: d,
		TeamA:      req.TeamA,
		TeamB:      req.TeamB,
		Winners:    winners,
		BestOf:     bestOf,
		TeamModel:  tm,
		PlayedAt:   playedAt,
	}, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	MatchID   string `json:"match_id"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps an error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		isRatingInputError(err):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func isRatingInputError(err error) bool {
	for _, kind := range []error{
		rating.ErrInvalidMatch,
		rating.ErrInvalidOutcome,
		rating.ErrNonFinite,
		rating.ErrNegativeExperience,
		rating.ErrEmptySeries,
		rating.ErrTooManyGames,
		rating.ErrSeriesUndecided,
		rating.ErrInvalidSide,
		rating.ErrUnsupportedFormat,
		rating.ErrUnknownTeamModel,
		rating.ErrUnknownDiscipline,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// parseLimit reads ?limit=, falling back to def when absent and rejecting
// values outside [1, max].
func parseLimit(r *http.Request, def, max int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return min(def, max), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > max {
		return 0, fmt.Errorf("%w: limit %d exceeds maximum %d", ErrBadRequest, n, max)
	}
	return n, nil
}

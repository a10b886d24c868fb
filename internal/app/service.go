// Package service provides the match-recording service behind the HTTP API:
// it validates matches, deduplicates them, queues them for the worker pool
// and rates them atomically against the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/foosrank/internal/adapters/mq/queue"
	workerpool "github.com/okian/foosrank/internal/adapters/mq/worker"
	"github.com/okian/foosrank/internal/adapters/repository"
	"github.com/okian/foosrank/internal/domain/dedupe"
	"github.com/okian/foosrank/internal/domain/model"
	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/okian/foosrank/internal/domain/types"
	"github.com/okian/foosrank/pkg/logger"
	"github.com/okian/foosrank/pkg/metrics"
)

// SubmitStatus reports what happened to a submitted match.
type SubmitStatus string

const (
	// SubmitAccepted means the match was queued for rating.
	SubmitAccepted SubmitStatus = "accepted"
	// SubmitDuplicate means the match ID was seen before; nothing was queued.
	SubmitDuplicate SubmitStatus = "duplicate"
)

// Stats is a point-in-time view of the service.
type Stats struct {
	Started       bool           `json:"started"`
	StartedAt     time.Time      `json:"started_at,omitzero"`
	Store         string         `json:"store"`
	WorkerCount   int            `json:"worker_count"`
	ActiveWorkers int            `json:"active_workers"`
	QueueLength   int            `json:"queue_length"`
	QueueCapacity int            `json:"queue_capacity"`
	DedupeEntries int64          `json:"dedupe_entries"`
	Participants  map[string]int `json:"participants"`
	Processed     int64          `json:"matches_processed"`
	Duplicates    int64          `json:"matches_duplicate"`
	Rejected      int64          `json:"matches_rejected"`
	Baseline      float64        `json:"baseline_rating"`
	TeamModel     string         `json:"team_model"`
	SweepPolicy   string         `json:"sweep_policy"`
}

// Service implements the API dependencies for the rating system.
type Service struct {
	mu sync.RWMutex

	engine  *rating.Engine
	store   repository.Store
	deduper dedupe.Deduper
	queue   eventqueue.Queue
	pool    *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	ratingCfg   rating.Config
	sqlitePath  string
	storeKind   string
	ownsStore   bool

	started   bool
	startedAt time.Time

	processed  atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64

	logger logger.Logger
}

// New constructs a Service. Components are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
		ratingCfg:   rating.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine, store, deduper, queue and worker pool and starts
// the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting rating service...")

	engine, err := rating.NewFromConfig(s.ratingCfg)
	if err != nil {
		return fmt.Errorf("rating engine: %w", err)
	}
	s.engine = engine

	switch {
	case s.store != nil:
		s.storeKind = "custom"
	case s.sqlitePath != "":
		store, err := repository.NewSQLStore(ctx, s.sqlitePath, repository.WithBaseline(engine.Baseline()))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.storeKind = "sqlite"
		s.ownsStore = true
	default:
		s.store = repository.NewTreapStore(ctx, repository.WithBaseline(engine.Baseline()))
		s.storeKind = "memory"
		s.ownsStore = true
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	// Workers keep running after ctx is cancelled; Stop drains them.
	s.pool.Start(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "rating service started",
		logger.String("store", s.storeKind),
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("team_model", string(s.ratingCfg.TeamModel)),
		logger.String("sweep_policy", string(s.ratingCfg.SweepPolicy)),
	)
	return nil
}

// Stop stops intake, lets the workers drain the queue and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping rating service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if s.ownsStore {
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
	return errors.Join(errs...)
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Engine returns the rating engine. Nil before Start.
func (s *Service) Engine() *rating.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// validate checks the match shape and that its series resolves.
func (s *Service) validate(m model.Match) error { //nolint:gocritic // hugeParam: Match is a value type
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := s.engine.ResolveSeries(m.Winners, m.BestOf); err != nil {
		return fmt.Errorf("%w: %w", rating.ErrInvalidMatch, err)
	}
	return nil
}

// Submit validates a match and queues it for rating. A match ID already
// seen is reported as SubmitDuplicate. When the queue is full the ID is
// forgotten again so the client can retry, and ErrQueueFull is returned.
func (s *Service) Submit(ctx context.Context, m model.Match) (SubmitStatus, error) { //nolint:gocritic // hugeParam: Match is a value type
	if !s.running() {
		return "", ErrNotStarted
	}
	if err := s.validate(m); err != nil {
		metrics.RecordMatchRejected("invalid")
		s.rejected.Add(1)
		return "", err
	}

	if s.deduper.SeenAndRecord(ctx, m.ID) {
		metrics.RecordMatchDuplicate()
		s.duplicates.Add(1)
		s.logger.Debug(ctx, "duplicate match", logger.String("match_id", m.ID))
		return SubmitDuplicate, nil
	}

	if !s.queue.Enqueue(ctx, m) {
		s.deduper.Unrecord(ctx, m.ID)
		metrics.RecordMatchRejected("queue_full")
		s.logger.Warn(ctx, "match queue is full", logger.String("match_id", m.ID))
		return "", ErrQueueFull
	}
	return SubmitAccepted, nil
}

// Preview rates a match against current standings without persisting it.
func (s *Service) Preview(ctx context.Context, m model.Match) (rating.Outcome, error) { //nolint:gocritic // hugeParam: Match is a value type
	if !s.running() {
		return rating.Outcome{}, ErrNotStarted
	}
	if err := m.Validate(); err != nil {
		return rating.Outcome{}, err
	}
	current, err := s.store.Snapshot(ctx, m.Discipline, m.Participants())
	if err != nil {
		return rating.Outcome{}, fmt.Errorf("snapshot: %w", err)
	}
	return s.engine.Resolve(matchInput(m, current))
}

// Process rates one queued match inside a single store Apply, so the
// ratings it reads cannot change before its results are written. It
// implements worker.Processor.
func (s *Service) Process(ctx context.Context, m model.Match) error { //nolint:gocritic // hugeParam: Match is a value type
	start := time.Now()

	var outcome rating.Outcome
	req := repository.ApplyRequest{
		MatchID:        m.ID,
		Discipline:     m.Discipline,
		ParticipantIDs: m.Participants(),
		At:             m.PlayedAt,
	}
	_, err := s.store.Apply(ctx, req, func(current []repository.Standing) ([]repository.Result, error) {
		out, err := s.engine.Resolve(matchInput(m, current))
		if err != nil {
			return nil, err
		}
		outcome = out
		return results(m, out), nil
	})
	metrics.RecordRatingLatency(float64(time.Since(start).Microseconds()) / 1000)

	switch {
	case errors.Is(err, repository.ErrMatchApplied):
		metrics.RecordMatchDuplicate()
		s.duplicates.Add(1)
		s.logger.Debug(ctx, "match already applied", logger.String("match_id", m.ID))
		return nil
	case err != nil:
		// Nothing was written; forget the ID so a resubmission is accepted.
		s.deduper.Unrecord(ctx, m.ID)
		metrics.RecordMatchRejected(rejectReason(err))
		s.rejected.Add(1)
		return err
	}

	d := string(m.Discipline)
	metrics.RecordMatchProcessed(d)
	if outcome.Series.IsSweep {
		metrics.RecordSweep(d)
	}
	for _, c := range append(outcome.SideA, outcome.SideB...) {
		metrics.RecordRatingDelta(d, c.Delta)
	}
	s.processed.Add(1)

	s.logger.Debug(ctx, "match rated",
		logger.String("match_id", m.ID),
		logger.String("discipline", d),
		logger.String("winner", string(outcome.Series.Winner)),
		logger.Bool("sweep", outcome.Series.IsSweep),
	)
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, rating.ErrInvalidMatch),
		errors.Is(err, rating.ErrNonFinite),
		errors.Is(err, rating.ErrNegativeExperience),
		errors.Is(err, rating.ErrUnknownTeamModel):
		return "invalid"
	case errors.Is(err, repository.ErrClosed):
		return "closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "store_error"
	}
}

// matchInput pairs the match with the standings of its participants, which
// are in Participants() order.
func matchInput(m model.Match, current []repository.Standing) rating.MatchInput { //nolint:gocritic // hugeParam: Match is a value type
	n := len(m.TeamA)
	in := rating.MatchInput{
		Discipline: m.Discipline,
		SideA:      make([]rating.Participant, n),
		SideB:      make([]rating.Participant, len(m.TeamB)),
		Winners:    m.Winners,
		BestOf:     m.BestOf,
		TeamModel:  m.TeamModel,
	}
	for i := range in.SideA {
		in.SideA[i] = current[i].Participant()
	}
	for i := range in.SideB {
		in.SideB[i] = current[n+i].Participant()
	}
	return in
}

// results flattens an outcome into store results in Participants() order.
func results(m model.Match, out rating.Outcome) []repository.Result { //nolint:gocritic // hugeParam: Match is a value type
	aWon := out.Series.Winner == rating.SideA
	res := make([]repository.Result, 0, len(out.SideA)+len(out.SideB))
	for i, c := range out.SideA {
		res = append(res, repository.Result{ParticipantID: m.TeamA[i], Old: c.Old, New: c.New, Delta: c.Delta, Won: aWon})
	}
	for i, c := range out.SideB {
		res = append(res, repository.Result{ParticipantID: m.TeamB[i], Old: c.Old, New: c.New, Delta: c.Delta, Won: !aWon})
	}
	return res
}

// TopN returns the top n leaderboard entries of a discipline.
func (s *Service) TopN(ctx context.Context, d rating.Discipline, n int) ([]types.Entry, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	entries, err := s.store.TopN(ctx, d, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = toEntry(e)
	}
	return out, nil
}

// Rank returns the standing and rank of a participant in a discipline.
func (s *Service) Rank(ctx context.Context, d rating.Discipline, id string) (types.Entry, error) {
	if !s.running() {
		return types.Entry{}, ErrNotStarted
	}
	e, err := s.store.Rank(ctx, d, id)
	if err != nil {
		return types.Entry{}, err
	}
	return toEntry(e), nil
}

// History returns the most recent rating changes of a participant.
func (s *Service) History(ctx context.Context, id string, limit int) ([]types.HistoryEntry, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	recs, err := s.store.History(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.HistoryEntry, len(recs))
	for i, r := range recs {
		out[i] = types.HistoryEntry{
			MatchID:    r.MatchID,
			Discipline: string(r.Discipline),
			OldRating:  r.Old,
			NewRating:  r.New,
			Delta:      r.Delta,
			Won:        r.Won,
			RecordedAt: r.RecordedAt,
		}
	}
	return out, nil
}

func toEntry(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:          e.Rank,
		ParticipantID: e.ParticipantID,
		Rating:        e.Rating,
		GamesPlayed:   e.GamesPlayed,
		Wins:          e.Wins,
		Losses:        e.Losses,
	}
}

// GetStats returns service statistics for monitoring and refreshes the
// matching gauges.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Started:      s.started,
		Store:        s.storeKind,
		WorkerCount:  s.workerCount,
		Participants: map[string]int{},
		Processed:    s.processed.Load(),
		Duplicates:   s.duplicates.Load(),
		Rejected:     s.rejected.Load(),
		Baseline:     s.ratingCfg.Baseline,
		TeamModel:    string(s.ratingCfg.TeamModel),
		SweepPolicy:  string(s.ratingCfg.SweepPolicy),
	}
	if !s.started {
		return st
	}

	st.StartedAt = s.startedAt
	st.ActiveWorkers = s.pool.Active()
	st.QueueLength = s.queue.Len(ctx)
	st.QueueCapacity = s.queue.Cap()
	st.DedupeEntries = s.deduper.Size()
	for _, d := range []rating.Discipline{rating.DisciplineSolo, rating.DisciplineTeam} {
		n := s.store.Count(ctx, d)
		st.Participants[string(d)] = n
		metrics.UpdateParticipants(string(d), n)
	}
	if st.QueueCapacity > 0 {
		metrics.UpdateQueueUtilization(math.Min(1, float64(st.QueueLength)/float64(st.QueueCapacity)))
	}
	metrics.UpdateWorkerCount(s.workerCount)
	return st
}

package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/okian/foosrank/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: rating DESC, then participant id ASC (deterministic).
// Ranks are dense: equal ratings share a rank and the next distinct rating
// gets the next integer.

type boardKey struct {
	rating float64
	id     string
}

func boardLess(a, b boardKey) bool {
	if a.rating != b.rating {
		return a.rating > b.rating
	}
	return a.id < b.id
}

func ratingDesc(a, b float64) bool { return a > b }

// board is the leaderboard of one discipline.
type board struct {
	order       *treap[boardKey]
	distinct    *treap[float64] // one key per distinct rating, for dense ranks
	ratingCount map[float64]int
	standings   map[string]Standing
}

func newBoard() *board {
	return &board{
		order:       newTreap(boardLess),
		distinct:    newTreap(ratingDesc),
		ratingCount: make(map[float64]int),
		standings:   make(map[string]Standing),
	}
}

func (b *board) put(s Standing) {
	if old, ok := b.standings[s.ParticipantID]; ok {
		b.order.Delete(boardKey{rating: old.Rating, id: old.ParticipantID})
		b.ratingCount[old.Rating]--
		if b.ratingCount[old.Rating] == 0 {
			delete(b.ratingCount, old.Rating)
			b.distinct.Delete(old.Rating)
		}
	}
	b.standings[s.ParticipantID] = s
	b.order.Insert(boardKey{rating: s.Rating, id: s.ParticipantID})
	if b.ratingCount[s.Rating] == 0 {
		b.distinct.Insert(s.Rating)
	}
	b.ratingCount[s.Rating]++
}

func (b *board) denseRank(r float64) int {
	return b.distinct.CountBefore(r) + 1
}

// TreapStore keeps every discipline's leaderboard in memory behind a single
// lock. Apply holds the write lock across read, compute and write.
type TreapStore struct {
	mu      sync.RWMutex
	opts    options
	boards  map[rating.Discipline]*board
	history map[string][]HistoryRecord // oldest first
	applied map[string]struct{}
	closed  bool

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store and starts its metrics updater,
// which stops when ctx is done or Close is called.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &TreapStore{
		opts:     o,
		boards:   make(map[rating.Discipline]*board),
		history:  make(map[string][]HistoryRecord),
		applied:  make(map[string]struct{}),
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *TreapStore) baseline(d rating.Discipline, id string) Standing {
	return Standing{ParticipantID: id, Discipline: d, Rating: s.opts.baseline}
}

// Apply implements Store.Apply.
func (s *TreapStore) Apply(ctx context.Context, req ApplyRequest, fn ApplyFunc) ([]HistoryRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("apply", float64(time.Since(start).Microseconds())/1000)
	}()

	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, done := s.applied[req.MatchID]; done {
		return nil, fmt.Errorf("%w: %s", ErrMatchApplied, req.MatchID)
	}

	b, ok := s.boards[req.Discipline]
	if !ok {
		b = newBoard()
		s.boards[req.Discipline] = b
	}
	current := make([]Standing, len(req.ParticipantIDs))
	for i, id := range req.ParticipantIDs {
		st, ok := b.standings[id]
		if !ok {
			st = s.baseline(req.Discipline, id)
		}
		current[i] = st
	}

	results, err := fn(current)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errApplyAborted, err)
	}
	if err := checkResults(req.ParticipantIDs, results); err != nil {
		return nil, err
	}

	if req.At.IsZero() {
		req.At = s.opts.now()
	}
	records := make([]HistoryRecord, len(results))
	for i, r := range results {
		b.put(advance(current[i], r, req.At))
		records[i] = historyOf(req, r)
		s.history[r.ParticipantID] = append(s.history[r.ParticipantID], records[i])
	}
	s.applied[req.MatchID] = struct{}{}
	return records, nil
}

// Snapshot implements Store.Snapshot.
func (s *TreapStore) Snapshot(_ context.Context, d rating.Discipline, ids []string) ([]Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Standing, len(ids))
	b := s.boards[d]
	for i, id := range ids {
		if b != nil {
			if st, ok := b.standings[id]; ok {
				out[i] = st
				continue
			}
		}
		out[i] = s.baseline(d, id)
	}
	return out, nil
}

// Rank returns the standing and dense rank of a participant in O(log n).
func (s *TreapStore) Rank(_ context.Context, d rating.Discipline, id string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.boards[d]
	if b == nil {
		return Entry{}, ErrNotFound
	}
	st, ok := b.standings[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: b.denseRank(st.Rating), Standing: st}, nil
}

// TopN returns the top n entries ordered by rating desc, id asc.
func (s *TreapStore) TopN(_ context.Context, d rating.Discipline, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("top_n", float64(time.Since(start).Microseconds())/1000)
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.boards[d]
	if b == nil {
		return []Entry{}, nil
	}
	out := make([]Entry, 0, min(n, len(b.standings)))
	b.order.Ascend(func(k boardKey) bool {
		out = append(out, Entry{Standing: b.standings[k.id]})
		return len(out) < n
	})
	assignDenseRanks(out)
	return out, nil
}

// History returns up to limit records of a participant, newest first.
func (s *TreapStore) History(_ context.Context, id string, limit int) ([]HistoryRecord, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[id]
	n := min(limit, len(h))
	out := make([]HistoryRecord, n)
	for i := 0; i < n; i++ {
		out[i] = h[len(h)-1-i]
	}
	return out, nil
}

// Count returns the number of participants rated in d.
func (s *TreapStore) Count(_ context.Context, d rating.Discipline) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b := s.boards[d]; b != nil {
		return len(b.standings)
	}
	return 0
}

// Close stops the metrics updater. Further Apply calls fail with ErrClosed.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

// startMetricsUpdater publishes participant counts periodically.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *TreapStore) updateMetrics(ctx context.Context) {
	for _, d := range []rating.Discipline{rating.DisciplineSolo, rating.DisciplineTeam} {
		metrics.UpdateParticipants(string(d), s.Count(ctx, d))
	}
}

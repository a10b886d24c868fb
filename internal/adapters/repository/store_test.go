package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/foosrank/internal/domain/rating"
)

var testClock = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type storeCase struct {
	name string
	open func(t *testing.T, opts ...Option) Store
}

func storeCases() []storeCase {
	return []storeCase{
		{
			name: "treap",
			open: func(t *testing.T, opts ...Option) Store {
				opts = append([]Option{WithMetricsUpdateInterval(time.Hour), WithClock(func() time.Time { return testClock })}, opts...)
				s := NewTreapStore(context.Background(), opts...)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T, opts ...Option) Store {
				opts = append([]Option{WithClock(func() time.Time { return testClock })}, opts...)
				path := filepath.Join(t.TempDir(), "ratings.db")
				s, err := NewSQLStore(context.Background(), path, opts...)
				if err != nil {
					t.Fatalf("open sqlite store: %v", err)
				}
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}
}

// forEachStore runs fn once per Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	for _, c := range storeCases() {
		t.Run(c.name, func(t *testing.T) {
			fn(t, c.open(t))
		})
	}
}

// setTo returns an ApplyFunc that moves participant i to ratings[i].
// The first participant is recorded as the winner.
func setTo(ratings ...float64) ApplyFunc {
	return func(current []Standing) ([]Result, error) {
		if len(current) != len(ratings) {
			return nil, fmt.Errorf("got %d standings, want %d", len(current), len(ratings))
		}
		out := make([]Result, len(current))
		for i, st := range current {
			out[i] = Result{
				ParticipantID: st.ParticipantID,
				Old:           st.Rating,
				New:           ratings[i],
				Delta:         ratings[i] - st.Rating,
				Won:           i == 0,
			}
		}
		return out, nil
	}
}

func solo(matchID string, ids ...string) ApplyRequest {
	return ApplyRequest{MatchID: matchID, Discipline: rating.DisciplineSolo, ParticipantIDs: ids}
}

func mustApply(t *testing.T, s Store, req ApplyRequest, fn ApplyFunc) []HistoryRecord {
	t.Helper()
	recs, err := s.Apply(context.Background(), req, fn)
	if err != nil {
		t.Fatalf("apply %s: %v", req.MatchID, err)
	}
	return recs
}

func TestStore_BasicOperations(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if n := s.Count(ctx, rating.DisciplineSolo); n != 0 {
			t.Errorf("expected count 0, got %d", n)
		}
		if _, err := s.Rank(ctx, rating.DisciplineSolo, "alice"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		top, err := s.TopN(ctx, rating.DisciplineSolo, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(top) != 0 {
			t.Errorf("expected empty board, got %d entries", len(top))
		}

		recs := mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1016, 984))
		if len(recs) != 2 {
			t.Fatalf("expected 2 history records, got %d", len(recs))
		}
		if recs[0].Old != rating.DefaultBaseline || recs[0].New != 1016 || recs[0].Delta != 16 || !recs[0].Won {
			t.Errorf("unexpected record for alice: %+v", recs[0])
		}
		if recs[1].Won {
			t.Error("expected bob to be recorded as the loser")
		}
		if !recs[0].RecordedAt.Equal(testClock) {
			t.Errorf("expected recorded_at %v, got %v", testClock, recs[0].RecordedAt)
		}

		if n := s.Count(ctx, rating.DisciplineSolo); n != 2 {
			t.Errorf("expected count 2, got %d", n)
		}
		if n := s.Count(ctx, rating.DisciplineTeam); n != 0 {
			t.Errorf("expected team count 0, got %d", n)
		}

		e, err := s.Rank(ctx, rating.DisciplineSolo, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Rank != 1 || e.Rating != 1016 || e.GamesPlayed != 1 || e.Wins != 1 || e.Losses != 0 {
			t.Errorf("unexpected entry for alice: %+v", e)
		}
		e, err = s.Rank(ctx, rating.DisciplineSolo, "bob")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Rank != 2 || e.Rating != 984 || e.Losses != 1 {
			t.Errorf("unexpected entry for bob: %+v", e)
		}
		if !e.UpdatedAt.Equal(testClock) {
			t.Errorf("expected updated_at %v, got %v", testClock, e.UpdatedAt)
		}
	})
}

func TestStore_SnapshotDoesNotCreate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1016, 984))

		snap, err := s.Snapshot(ctx, rating.DisciplineSolo, []string{"bob", "carol"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap[0].ParticipantID != "bob" || snap[0].Rating != 984 || snap[0].GamesPlayed != 1 {
			t.Errorf("unexpected snapshot for bob: %+v", snap[0])
		}
		if snap[1].ParticipantID != "carol" || snap[1].Rating != rating.DefaultBaseline || snap[1].GamesPlayed != 0 {
			t.Errorf("unexpected snapshot for carol: %+v", snap[1])
		}
		if n := s.Count(ctx, rating.DisciplineSolo); n != 2 {
			t.Errorf("snapshot must not create standings, count is %d", n)
		}
	})
}

func TestStore_CustomBaseline(t *testing.T) {
	for _, c := range storeCases() {
		t.Run(c.name, func(t *testing.T) {
			s := c.open(t, WithBaseline(rating.AlternateBaseline))
			recs := mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1216, 1184))
			if recs[0].Old != rating.AlternateBaseline {
				t.Errorf("expected old rating %v, got %v", rating.AlternateBaseline, recs[0].Old)
			}
		})
	}
}

func TestStore_DisciplinesAreIndependent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1016, 984))
		mustApply(t, s, ApplyRequest{
			MatchID:        "m-2",
			Discipline:     rating.DisciplineTeam,
			ParticipantIDs: []string{"alice", "carol", "bob", "dave"},
		}, setTo(1025, 1025, 975, 975))

		soloEntry, err := s.Rank(ctx, rating.DisciplineSolo, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		teamEntry, err := s.Rank(ctx, rating.DisciplineTeam, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if soloEntry.Rating != 1016 || teamEntry.Rating != 1025 {
			t.Errorf("expected independent ratings 1016/1025, got %v/%v", soloEntry.Rating, teamEntry.Rating)
		}
		if soloEntry.GamesPlayed != 1 || teamEntry.GamesPlayed != 1 {
			t.Errorf("expected one game per discipline, got %d/%d", soloEntry.GamesPlayed, teamEntry.GamesPlayed)
		}

		hist, err := s.History(ctx, "alice", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hist) != 2 || hist[0].Discipline != rating.DisciplineTeam || hist[1].Discipline != rating.DisciplineSolo {
			t.Errorf("expected team then solo history, got %+v", hist)
		}
	})
}

func TestStore_DenseRanksAndOrdering(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustApply(t, s, solo("m-1", "dave", "carol"), setTo(1100, 1050))
		mustApply(t, s, solo("m-2", "bob", "alice"), setTo(1100, 1050))
		mustApply(t, s, solo("m-3", "erin", "frank"), setTo(1200, 900))

		top, err := s.TopN(ctx, rating.DisciplineSolo, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []struct {
			id   string
			rank int
		}{
			{"erin", 1},
			{"bob", 2},
			{"dave", 2},
			{"alice", 3},
			{"carol", 3},
			{"frank", 4},
		}
		if len(top) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(top))
		}
		for i, w := range want {
			if top[i].ParticipantID != w.id || top[i].Rank != w.rank {
				t.Errorf("position %d: expected %s rank %d, got %s rank %d", i, w.id, w.rank, top[i].ParticipantID, top[i].Rank)
			}
		}

		for _, w := range want {
			e, err := s.Rank(ctx, rating.DisciplineSolo, w.id)
			if err != nil {
				t.Fatalf("rank %s: %v", w.id, err)
			}
			if e.Rank != w.rank {
				t.Errorf("rank of %s: expected %d, got %d", w.id, w.rank, e.Rank)
			}
		}

		top, err = s.TopN(ctx, rating.DisciplineSolo, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(top) != 3 || top[2].ParticipantID != "dave" {
			t.Errorf("expected top 3 to end with dave, got %+v", top)
		}
	})
}

func TestStore_RanksFollowRatingChanges(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1016, 984))
		mustApply(t, s, solo("m-2", "bob", "alice"), setTo(1040, 960))

		bob, err := s.Rank(ctx, rating.DisciplineSolo, "bob")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bob.Rank != 1 || bob.Wins != 1 || bob.Losses != 1 || bob.GamesPlayed != 2 {
			t.Errorf("unexpected entry for bob: %+v", bob)
		}

		// Back to a tie: both share rank 1.
		mustApply(t, s, solo("m-3", "alice", "bob"), setTo(1000, 1000))
		top, err := s.TopN(ctx, rating.DisciplineSolo, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(top) != 2 || top[0].Rank != 1 || top[1].Rank != 1 || top[0].ParticipantID != "alice" {
			t.Errorf("expected alice and bob tied at rank 1, got %+v", top)
		}
	})
}

func TestStore_MatchAppliedOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1016, 984))

		called := false
		_, err := s.Apply(ctx, solo("m-1", "alice", "bob"), func(current []Standing) ([]Result, error) {
			called = true
			return setTo(2000, 0)(current)
		})
		if !errors.Is(err, ErrMatchApplied) {
			t.Fatalf("expected ErrMatchApplied, got %v", err)
		}
		if called {
			t.Error("apply func must not run for an applied match")
		}
		e, _ := s.Rank(ctx, rating.DisciplineSolo, "alice")
		if e.Rating != 1016 || e.GamesPlayed != 1 {
			t.Errorf("duplicate apply changed alice: %+v", e)
		}
	})
}

func TestStore_FailedApplyChangesNothing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1016, 984))

		boom := errors.New("boom")
		_, err := s.Apply(ctx, solo("m-2", "alice", "bob"), func([]Standing) ([]Result, error) {
			return nil, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected apply func error, got %v", err)
		}

		tests := []struct {
			name string
			fn   ApplyFunc
		}{
			{"too few results", func(current []Standing) ([]Result, error) {
				r, _ := setTo(1, 2)(current)
				return r[:1], nil
			}},
			{"wrong order", func(current []Standing) ([]Result, error) {
				r, _ := setTo(1, 2)(current)
				r[0], r[1] = r[1], r[0]
				return r, nil
			}},
			{"non-finite rating", func(current []Standing) ([]Result, error) {
				r, _ := setTo(1, 2)(current)
				r[1].New = math.Inf(1)
				return r, nil
			}},
		}
		for _, tt := range tests {
			if _, err := s.Apply(ctx, solo("m-2", "alice", "bob"), tt.fn); !errors.Is(err, ErrInvalidApply) {
				t.Errorf("%s: expected ErrInvalidApply, got %v", tt.name, err)
			}
		}

		e, _ := s.Rank(ctx, rating.DisciplineSolo, "alice")
		if e.Rating != 1016 || e.GamesPlayed != 1 {
			t.Errorf("failed apply changed alice: %+v", e)
		}
		hist, _ := s.History(ctx, "alice", 10)
		if len(hist) != 1 {
			t.Errorf("failed apply wrote history: %+v", hist)
		}

		// The match ID stays free after a failure.
		mustApply(t, s, solo("m-2", "alice", "bob"), setTo(1030, 970))
	})
}

func TestStore_InvalidRequests(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tests := []struct {
			name string
			req  ApplyRequest
		}{
			{"empty match id", solo("", "alice", "bob")},
			{"no participants", solo("m-1")},
			{"empty participant", solo("m-1", "alice", "")},
			{"duplicate participant", solo("m-1", "alice", "alice")},
			{"unknown discipline", ApplyRequest{MatchID: "m-1", Discipline: "doubles", ParticipantIDs: []string{"a", "b"}}},
		}
		for _, tt := range tests {
			if _, err := s.Apply(ctx, tt.req, setTo(1, 2)); !errors.Is(err, ErrInvalidApply) {
				t.Errorf("%s: expected ErrInvalidApply, got %v", tt.name, err)
			}
		}
		if _, err := s.TopN(ctx, rating.DisciplineSolo, 0); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("expected ErrInvalidLimit for TopN(0), got %v", err)
		}
		if _, err := s.History(ctx, "alice", 0); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("expected ErrInvalidLimit for History(0), got %v", err)
		}
	})
}

func TestStore_HistoryNewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= 5; i++ {
			mustApply(t, s, solo(fmt.Sprintf("m-%d", i), "alice", "bob"), setTo(float64(1000+i), float64(1000-i)))
		}

		hist, err := s.History(ctx, "alice", 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hist) != 3 {
			t.Fatalf("expected 3 records, got %d", len(hist))
		}
		for i, want := range []string{"m-5", "m-4", "m-3"} {
			if hist[i].MatchID != want {
				t.Errorf("record %d: expected %s, got %s", i, want, hist[i].MatchID)
			}
		}
		if hist[0].Old != 1004 || hist[0].New != 1005 {
			t.Errorf("unexpected newest record: %+v", hist[0])
		}

		all, err := s.History(ctx, "bob", 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 5 || all[4].MatchID != "m-1" || all[4].Won {
			t.Errorf("unexpected history for bob: %+v", all)
		}

		none, err := s.History(ctx, "nobody", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no history, got %+v", none)
		}
	})
}

func TestStore_ConcurrentApply(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const workers = 8
		const perWorker = 25

		// Every match adds one point to alice and removes one from bob, so any
		// lost update shows up in the final ratings.
		bump := func(current []Standing) ([]Result, error) {
			return setTo(current[0].Rating+1, current[1].Rating-1)(current)
		}

		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					_, err := s.Apply(ctx, solo(fmt.Sprintf("w%d-m%d", w, i), "alice", "bob"), bump)
					if err != nil {
						errs <- err
					}
				}
			}(w)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("concurrent apply failed: %v", err)
		}

		const total = workers * perWorker
		alice, _ := s.Rank(ctx, rating.DisciplineSolo, "alice")
		bob, _ := s.Rank(ctx, rating.DisciplineSolo, "bob")
		if alice.Rating != rating.DefaultBaseline+total || bob.Rating != rating.DefaultBaseline-total {
			t.Errorf("lost updates: alice %v, bob %v", alice.Rating, bob.Rating)
		}
		if alice.GamesPlayed != total || alice.Wins != total || bob.Losses != total {
			t.Errorf("unexpected counters: alice %+v, bob %+v", alice, bob)
		}
	})
}

func TestStore_ConcurrentDuplicateApply(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const attempts = 16

		var wg sync.WaitGroup
		var mu sync.Mutex
		applied, duplicates := 0, 0
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Apply(ctx, solo("m-dup", "alice", "bob"), setTo(1016, 984))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					applied++
				case errors.Is(err, ErrMatchApplied):
					duplicates++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if applied != 1 || duplicates != attempts-1 {
			t.Errorf("expected exactly one apply, got %d applied and %d duplicates", applied, duplicates)
		}
	})
}

func TestStore_CloseBehavior(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("second close: %v", err)
		}
		_, err := s.Apply(context.Background(), solo("m-1", "alice", "bob"), setTo(1016, 984))
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}

func TestSQLStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ratings.db")

	s, err := NewSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mustApply(t, s, solo("m-1", "alice", "bob"), setTo(1016, 984))
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	e, err := s.Rank(ctx, rating.DisciplineSolo, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Rating != 1016 || e.Wins != 1 {
		t.Errorf("unexpected entry after reopen: %+v", e)
	}
	if _, err := s.Apply(ctx, solo("m-1", "alice", "bob"), setTo(1, 2)); !errors.Is(err, ErrMatchApplied) {
		t.Errorf("expected applied matches to survive reopen, got %v", err)
	}
}

func TestTreapStore_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewTreapStore(ctx, WithMetricsUpdateInterval(10*time.Millisecond))
	defer s.Close()

	cancel()
	if _, err := s.Apply(ctx, solo("m-1", "alice", "bob"), setTo(1016, 984)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

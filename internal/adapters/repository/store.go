// Package repository defines the rating store contract and its in-memory
// and SQLite implementations.
package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/foosrank/internal/domain/rating"
)

// Standing is the persisted rating state of one participant in one discipline.
type Standing struct {
	ParticipantID string
	Discipline    rating.Discipline
	Rating        float64
	GamesPlayed   int
	Wins          int
	Losses        int
	UpdatedAt     time.Time
}

// Participant returns the engine view of the standing.
func (s Standing) Participant() rating.Participant {
	return rating.Participant{Rating: s.Rating, GamesPlayed: s.GamesPlayed}
}

// Entry represents a leaderboard row.
type Entry struct {
	Rank int
	Standing
}

// HistoryRecord is one rating change of one participant caused by one match.
type HistoryRecord struct {
	MatchID       string
	ParticipantID string
	Discipline    rating.Discipline
	Old           float64
	New           float64
	Delta         float64
	Won           bool
	RecordedAt    time.Time
}

// Result is the new rating of one participant computed inside Apply.
type Result struct {
	ParticipantID string
	Old           float64
	New           float64
	Delta         float64
	Won           bool
}

// ApplyRequest identifies the match whose participants Apply loads.
type ApplyRequest struct {
	MatchID        string
	Discipline     rating.Discipline
	ParticipantIDs []string
	At             time.Time
}

// ApplyFunc computes new ratings from a consistent snapshot of the
// participants' standings, in the order of ApplyRequest.ParticipantIDs.
// Returning an error aborts Apply without persisting anything.
type ApplyFunc func(current []Standing) ([]Result, error)

// Store provides read/write access to ratings.
type Store interface {
	// Apply loads the standings of every participant of a match, creating
	// baseline standings for unknown IDs, passes them to fn and persists the
	// results and their history records atomically. No other Apply observes
	// or modifies these participants in between. A match ID is applied at
	// most once; a repeat returns ErrMatchApplied.
	Apply(ctx context.Context, req ApplyRequest, fn ApplyFunc) ([]HistoryRecord, error)

	// Snapshot returns current standings for ids without creating anything.
	// Unknown IDs get a baseline standing.
	Snapshot(ctx context.Context, d rating.Discipline, ids []string) ([]Standing, error)

	// Rank returns the standing and dense rank of a participant.
	// Returns ErrNotFound if the participant has no standing in d.
	Rank(ctx context.Context, d rating.Discipline, id string) (Entry, error)

	// TopN returns the top-N entries ordered by rating desc, id asc.
	TopN(ctx context.Context, d rating.Discipline, n int) ([]Entry, error)

	// History returns up to limit records of a participant, newest first.
	History(ctx context.Context, id string, limit int) ([]HistoryRecord, error)

	// Count returns the number of participants rated in d.
	Count(ctx context.Context, d rating.Discipline) int

	Close() error
}

func checkRequest(req ApplyRequest) error {
	if req.MatchID == "" {
		return fmt.Errorf("%w: empty match id", ErrInvalidApply)
	}
	if _, err := rating.ParseDiscipline(string(req.Discipline)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidApply, err)
	}
	if len(req.ParticipantIDs) == 0 {
		return fmt.Errorf("%w: no participants", ErrInvalidApply)
	}
	seen := make(map[string]struct{}, len(req.ParticipantIDs))
	for _, id := range req.ParticipantIDs {
		if id == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidApply)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: participant %q listed twice", ErrInvalidApply, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// checkResults verifies fn returned one finite result per participant, in order.
func checkResults(ids []string, results []Result) error {
	if len(results) != len(ids) {
		return fmt.Errorf("%w: %d results for %d participants", ErrInvalidApply, len(results), len(ids))
	}
	for i, r := range results {
		if r.ParticipantID != ids[i] {
			return fmt.Errorf("%w: result %d is for %q, want %q", ErrInvalidApply, i, r.ParticipantID, ids[i])
		}
		if math.IsNaN(r.New) || math.IsInf(r.New, 0) {
			return fmt.Errorf("%w: non-finite rating for %q", ErrInvalidApply, r.ParticipantID)
		}
	}
	return nil
}

// advance returns s after a rated match.
func advance(s Standing, r Result, at time.Time) Standing {
	s.Rating = r.New
	s.GamesPlayed++
	if r.Won {
		s.Wins++
	} else {
		s.Losses++
	}
	s.UpdatedAt = at
	return s
}

func historyOf(req ApplyRequest, r Result) HistoryRecord {
	return HistoryRecord{
		MatchID:       req.MatchID,
		ParticipantID: r.ParticipantID,
		Discipline:    req.Discipline,
		Old:           r.Old,
		New:           r.New,
		Delta:         r.Delta,
		Won:           r.Won,
		RecordedAt:    req.At,
	}
}

// assignDenseRanks ranks entries already sorted from the top of the board.
// Equal ratings share a rank; the next distinct rating gets the next integer.
func assignDenseRanks(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Rating != entries[i-1].Rating {
			rank++
		}
		entries[i].Rank = rank
	}
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/okian/foosrank/pkg/metrics"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS standings (
		discipline     TEXT    NOT NULL,
		participant_id TEXT    NOT NULL,
		rating         REAL    NOT NULL,
		games_played   INTEGER NOT NULL DEFAULT 0,
		wins           INTEGER NOT NULL DEFAULT 0,
		losses         INTEGER NOT NULL DEFAULT 0,
		updated_at     INTEGER NOT NULL,
		PRIMARY KEY (discipline, participant_id)
	);
	CREATE INDEX IF NOT EXISTS idx_standings_board
		ON standings (discipline, rating DESC, participant_id);

	CREATE TABLE IF NOT EXISTS applied_matches (
		match_id   TEXT    PRIMARY KEY,
		discipline TEXT    NOT NULL,
		applied_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rating_history (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id       TEXT    NOT NULL,
		participant_id TEXT    NOT NULL,
		discipline     TEXT    NOT NULL,
		old_rating     REAL    NOT NULL,
		new_rating     REAL    NOT NULL,
		delta          REAL    NOT NULL,
		won            INTEGER NOT NULL,
		recorded_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_participant
		ON rating_history (participant_id, id DESC);
`

// SQLStore persists ratings in SQLite. The pool holds a single connection,
// so every Apply transaction runs alone against the database.
type SQLStore struct {
	db     *sql.DB
	opts   options
	closed atomic.Bool
}

// NewSQLStore opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func NewSQLStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"}
	if !strings.Contains(path, ":memory:") {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db, opts: o}, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) loadStanding(ctx context.Context, q querier, d rating.Discipline, id string) (Standing, bool, error) {
	st := Standing{ParticipantID: id, Discipline: d}
	var updated int64
	err := q.QueryRowContext(ctx, `
		SELECT rating, games_played, wins, losses, updated_at
		FROM standings WHERE discipline = ? AND participant_id = ?`,
		string(d), id,
	).Scan(&st.Rating, &st.GamesPlayed, &st.Wins, &st.Losses, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		st.Rating = s.opts.baseline
		return st, false, nil
	}
	if err != nil {
		return Standing{}, false, err
	}
	st.UpdatedAt = time.Unix(0, updated).UTC()
	return st, true, nil
}

// observe records latency, and counts failures that came from the database
// rather than from the caller.
func (s *SQLStore) observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if isDBError(err) {
		metrics.RecordStoreError(op)
	}
}

func isDBError(err error) bool {
	if err == nil {
		return false
	}
	for _, known := range []error{ErrNotFound, ErrMatchApplied, ErrInvalidLimit, ErrInvalidApply, ErrClosed, errApplyAborted} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}

// Apply implements Store.Apply inside one transaction.
func (s *SQLStore) Apply(ctx context.Context, req ApplyRequest, fn ApplyFunc) (records []HistoryRecord, err error) {
	start := time.Now()
	defer func() { s.observe("apply", start, err) }()

	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM applied_matches WHERE match_id = ?`, req.MatchID).Scan(&one)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", ErrMatchApplied, req.MatchID)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check applied: %w", err)
	}

	current := make([]Standing, len(req.ParticipantIDs))
	for i, id := range req.ParticipantIDs {
		st, _, err := s.loadStanding(ctx, tx, req.Discipline, id)
		if err != nil {
			return nil, fmt.Errorf("load standing %s: %w", id, err)
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
	at := req.At.UnixNano()
	records = make([]HistoryRecord, len(results))
	for i, r := range results {
		st := advance(current[i], r, req.At)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO standings (discipline, participant_id, rating, games_played, wins, losses, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (discipline, participant_id) DO UPDATE SET
				rating = excluded.rating,
				games_played = excluded.games_played,
				wins = excluded.wins,
				losses = excluded.losses,
				updated_at = excluded.updated_at`,
			string(st.Discipline), st.ParticipantID, st.Rating, st.GamesPlayed, st.Wins, st.Losses, at,
		); err != nil {
			return nil, fmt.Errorf("save standing %s: %w", st.ParticipantID, err)
		}

		rec := historyOf(req, r)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rating_history (match_id, participant_id, discipline, old_rating, new_rating, delta, won, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.MatchID, rec.ParticipantID, string(rec.Discipline), rec.Old, rec.New, rec.Delta, rec.Won, at,
		); err != nil {
			return nil, fmt.Errorf("save history %s: %w", rec.ParticipantID, err)
		}
		records[i] = rec
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO applied_matches (match_id, discipline, applied_at) VALUES (?, ?, ?)`,
		req.MatchID, string(req.Discipline), at,
	); err != nil {
		return nil, fmt.Errorf("mark applied: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return records, nil
}

// Snapshot implements Store.Snapshot.
func (s *SQLStore) Snapshot(ctx context.Context, d rating.Discipline, ids []string) ([]Standing, error) {
	out := make([]Standing, len(ids))
	for i, id := range ids {
		st, _, err := s.loadStanding(ctx, s.db, d, id)
		if err != nil {
			return nil, fmt.Errorf("load standing %s: %w", id, err)
		}
		out[i] = st
	}
	return out, nil
}

// Rank implements Store.Rank.
func (s *SQLStore) Rank(ctx context.Context, d rating.Discipline, id string) (e Entry, err error) {
	start := time.Now()
	defer func() { s.observe("rank", start, err) }()

	st, found, err := s.loadStanding(ctx, s.db, d, id)
	if err != nil {
		return Entry{}, fmt.Errorf("load standing %s: %w", id, err)
	}
	if !found {
		return Entry{}, ErrNotFound
	}
	var higher int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT rating) FROM standings WHERE discipline = ? AND rating > ?`,
		string(d), st.Rating,
	).Scan(&higher); err != nil {
		return Entry{}, fmt.Errorf("rank %s: %w", id, err)
	}
	return Entry{Rank: higher + 1, Standing: st}, nil
}

// TopN implements Store.TopN.
func (s *SQLStore) TopN(ctx context.Context, d rating.Discipline, n int) (out []Entry, err error) {
	start := time.Now()
	defer func() { s.observe("top_n", start, err) }()

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, rating, games_played, wins, losses, updated_at
		FROM standings WHERE discipline = ?
		ORDER BY rating DESC, participant_id ASC
		LIMIT ?`,
		string(d), n,
	)
	if err != nil {
		return nil, fmt.Errorf("top %d: %w", n, err)
	}
	defer rows.Close()

	out = make([]Entry, 0, n)
	for rows.Next() {
		e := Entry{Standing: Standing{Discipline: d}}
		var updated int64
		if err := rows.Scan(&e.ParticipantID, &e.Rating, &e.GamesPlayed, &e.Wins, &e.Losses, &updated); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		e.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	assignDenseRanks(out)
	return out, nil
}

// History implements Store.History.
func (s *SQLStore) History(ctx context.Context, id string, limit int) (out []HistoryRecord, err error) {
	start := time.Now()
	defer func() { s.observe("history", start, err) }()

	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT match_id, discipline, old_rating, new_rating, delta, won, recorded_at
		FROM rating_history WHERE participant_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", id, err)
	}
	defer rows.Close()

	out = make([]HistoryRecord, 0, limit)
	for rows.Next() {
		r := HistoryRecord{ParticipantID: id}
		var d string
		var recorded int64
		if err := rows.Scan(&r.MatchID, &d, &r.Old, &r.New, &r.Delta, &r.Won, &recorded); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.Discipline = rating.Discipline(d)
		r.RecordedAt = time.Unix(0, recorded).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count implements Store.Count. Query failures count as zero and are
// reported through metrics.
func (s *SQLStore) Count(ctx context.Context, d rating.Discipline) int {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM standings WHERE discipline = ?`, string(d),
	).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0
	}
	return n
}

// Close closes the database. Further Apply calls fail with ErrClosed.
func (s *SQLStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

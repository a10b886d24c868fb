package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/foosrank/pkg/logger"
)

const directoryPermission = 0o750

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")

	log.Info(ctx, "starting foosrank simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("matches", cfg.Matches),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg)
	players := gen.Players()
	matches := gen.Matches(players, stats.StartTime)
	stats.PlayersGenerated = len(players)
	stats.MatchesGenerated = len(matches)

	before, err := c.stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read service stats: %w", err)
	}

	submitMatches(ctx, cfg, c, matches, stats)

	log.Info(ctx, "waiting for matches to be processed")
	if err := waitForProcessing(ctx, cfg, c, before, int64(stats.MatchesAccepted)); err != nil {
		return stats, err
	}

	board, err := c.leaderboard(ctx, "solo", cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(board)
	if err := verifyBoard(board); err != nil {
		return stats, err
	}

	ratings := fetchRatings(ctx, cfg, c, players)
	stats.RatingsRetrieved = len(ratings)
	if err := verifyRanks(board, ratings); err != nil {
		return stats, err
	}

	stats.Correlation = skillCorrelation(players, ratings)
	logTopPlayers(ctx, board, players)

	if cfg.OutputFile != "" {
		if err := saveRun(cfg.OutputFile, players, matches); err != nil {
			log.Warn(ctx, "failed to save run", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, stats)

	if cfg.MinCorrelation > 0 && (math.IsNaN(stats.Correlation) || stats.Correlation < cfg.MinCorrelation) {
		return stats, fmt.Errorf("%w: spearman %.3f below %.3f", ErrWeakCorrelation, stats.Correlation, cfg.MinCorrelation)
	}
	return stats, nil
}

type runFile struct {
	Players []Player       `json:"players"`
	Matches []MatchRequest `json:"matches"`
}

// saveRun writes the generated players and matches as JSON.
func saveRun(path string, players []Player, matches []MatchRequest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(runFile{Players: players, Matches: matches}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	return nil
}

func logStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}
	corr := stats.Correlation
	if math.IsNaN(corr) {
		corr = 0
	}
	logger.Get().Named("simulate").Info(ctx, "final statistics",
		logger.Int("players", stats.PlayersGenerated),
		logger.Int("matches_generated", stats.MatchesGenerated),
		logger.Int("matches_submitted", stats.MatchesSubmitted),
		logger.Int("matches_accepted", stats.MatchesAccepted),
		logger.Int("matches_duplicate", stats.MatchesDuplicate),
		logger.Int("matches_rejected", stats.MatchesRejected),
		logger.Int("matches_failed", stats.MatchesFailed),
		logger.Int("ratings_retrieved", stats.RatingsRetrieved),
		logger.Int("leaderboard_entries", stats.LeaderboardEntries),
		logger.Float64("skill_correlation", corr),
		logger.Duration("duration", stats.Duration),
		logger.Float64("matches_per_second", perSecond))
}

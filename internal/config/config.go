// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config holding every default.
// - Load layers an optional YAML file and FOOSRANK_* env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/okian/foosrank/internal/domain/rating"
)

// Rating store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory match queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rating workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the match-ID deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxHistoryLimit caps GET /history/{id}?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`
	// SubmitRatePerSec limits POST /matches per client IP; 0 disables.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`
	// SubmitBurst is the per-client burst allowed above SubmitRatePerSec.
	SubmitBurst int `koanf:"submit_burst"`

	// Store selects the rating store: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	BaselineRating float64 `koanf:"baseline_rating"`
	SoloDivisor    float64 `koanf:"solo_divisor"`
	TeamDivisor    float64 `koanf:"team_divisor"`
	FixedK         float64 `koanf:"fixed_k"`
	DynamicKMax    float64 `koanf:"dynamic_k_max"`
	DynamicKScale  float64 `koanf:"dynamic_k_scale"`
	SweepBonus     float64 `koanf:"sweep_bonus"`

	// SweepPolicy is winner_only or both_sides.
	SweepPolicy string `koanf:"sweep_policy"`

	// TeamModel is the default two-on-two model: advanced or average.
	TeamModel string `koanf:"team_model"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 100,
		MaxHistoryLimit:     200,
		SubmitBurst:         20,
		Store:               StoreMemory,
		SQLitePath:          "foosrank.db",
		BaselineRating:      rating.DefaultBaseline,
		SoloDivisor:         rating.DefaultSoloDivisor,
		TeamDivisor:         rating.DefaultTeamDivisor,
		FixedK:              rating.DefaultFixedK,
		DynamicKMax:         rating.DefaultDynamicKMax,
		DynamicKScale:       rating.DefaultDynamicKScale,
		SweepBonus:          rating.DefaultSweepBonus,
		SweepPolicy:         string(rating.SweepWinnerOnly),
		TeamModel:           string(rating.TeamModelAdvanced),
	}
}

// RatingConfig converts the rating keys into an engine configuration.
// Enum values are normalised; unknown values are left for Validate to reject.
func (c *Config) RatingConfig() rating.Config {
	rc := rating.Config{
		Baseline:      c.BaselineRating,
		SoloDivisor:   c.SoloDivisor,
		TeamDivisor:   c.TeamDivisor,
		FixedK:        c.FixedK,
		DynamicKMax:   c.DynamicKMax,
		DynamicKScale: c.DynamicKScale,
		SweepBonus:    c.SweepBonus,
		SweepPolicy:   rating.SweepPolicy(c.SweepPolicy),
		TeamModel:     rating.TeamModel(c.TeamModel),
	}
	if p, err := rating.ParseSweepPolicy(c.SweepPolicy); err == nil {
		rc.SweepPolicy = p
	}
	if m, err := rating.ParseTeamModel(c.TeamModel); err == nil {
		rc.TeamModel = m
	}
	return rc
}

// Validate checks every setting and returns an ErrInvalidConfig-wrapped error
// naming the first offending key.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	positive := []struct {
		key string
		v   int
	}{
		{"queue_size", c.QueueSize},
		{"worker_count", c.WorkerCount},
		{"dedupe_size", c.DedupeSize},
		{"max_leaderboard_limit", c.MaxLeaderboardLimit},
		{"max_history_limit", c.MaxHistoryLimit},
		{"submit_burst", c.SubmitBurst},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.key, p.v)
		}
	}
	if c.SubmitRatePerSec < 0 || math.IsNaN(c.SubmitRatePerSec) || math.IsInf(c.SubmitRatePerSec, 0) {
		return fmt.Errorf("%w: submit_rate_per_sec must be a finite non-negative number", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty when store is sqlite", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store must be memory or sqlite, got %q", ErrInvalidConfig, c.Store)
	}
	if err := c.RatingConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

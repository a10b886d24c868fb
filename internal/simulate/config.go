// Package simulate drives a running foosrank service with synthetic matches
// and checks that the resulting ratings are consistent.
package simulate

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:9080"
	DefaultPlayers        = 64
	DefaultMatches        = 5_000
	DefaultTeamRatio      = 0.3
	DefaultSeriesRatio    = 0.4
	DefaultSkillMean      = 1000.0
	DefaultSkillStdDev    = 250.0
	DefaultTopN           = 20
	DefaultTimeout        = 10 * time.Second
	DefaultProcessTimeout = 2 * time.Minute
	DefaultMinCorrelation = 0.5
)

// Sentinel errors.
var (
	ErrInvalidConfig     = errors.New("invalid simulation config")
	ErrUnhealthy         = errors.New("service unhealthy")
	ErrProcessingTimeout = errors.New("matches not processed in time")
	ErrInconsistent      = errors.New("inconsistent ratings")
	ErrWeakCorrelation   = errors.New("ratings do not follow hidden skill")
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string
	Players int
	Matches int
	// TeamRatio is the share of two-on-two matches.
	TeamRatio float64
	// SeriesRatio is the share of best-of-three matches.
	SeriesRatio float64
	SkillMean   float64
	SkillStdDev float64
	// Divisor scales hidden skill into win probability; it matches the
	// solo divisor by default so ratings can converge onto skill.
	Divisor        float64
	TopN           int
	Workers        int
	Timeout        time.Duration
	ProcessTimeout time.Duration
	// MinCorrelation is the Spearman correlation between hidden skill and
	// solo rating the run must reach. Zero or less disables the check.
	MinCorrelation float64
	Seed           uint64
	OutputFile     string
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base URL is empty", ErrInvalidConfig)
	case c.Players < 4:
		return fmt.Errorf("%w: need at least 4 players, got %d", ErrInvalidConfig, c.Players)
	case c.Matches < 1:
		return fmt.Errorf("%w: matches must be positive, got %d", ErrInvalidConfig, c.Matches)
	case c.TeamRatio < 0 || c.TeamRatio > 1:
		return fmt.Errorf("%w: team ratio %v outside [0,1]", ErrInvalidConfig, c.TeamRatio)
	case c.SeriesRatio < 0 || c.SeriesRatio > 1:
		return fmt.Errorf("%w: series ratio %v outside [0,1]", ErrInvalidConfig, c.SeriesRatio)
	case c.SkillStdDev < 0:
		return fmt.Errorf("%w: skill stddev must not be negative", ErrInvalidConfig)
	case c.Divisor <= 0:
		return fmt.Errorf("%w: divisor must be positive", ErrInvalidConfig)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive, got %d", ErrInvalidConfig, c.TopN)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.Timeout <= 0 || c.ProcessTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	PlayersGenerated   int
	MatchesGenerated   int
	MatchesSubmitted   int
	MatchesAccepted    int
	MatchesDuplicate   int
	MatchesRejected    int
	MatchesFailed      int
	RatingsRetrieved   int
	LeaderboardEntries int
	Correlation        float64
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// Package rating implements the ELO rating engine used to score recorded
// matches: expected-score models for one-on-one and two-on-two play, an
// experience-based sensitivity model, the rating update rule, and best-of-N
// series resolution.
//
// The engine is a pure computation. It performs no I/O, holds no mutable
// state after construction, and is safe for concurrent use.
package rating

import (
	"fmt"
	"math"
	"strings"
)

// Default engine parameters.
const (
	DefaultBaseline      = 1000
	AlternateBaseline    = 1200
	DefaultSoloDivisor   = 400
	DefaultTeamDivisor   = 500
	DefaultFixedK        = 32
	DefaultDynamicKMax   = 50
	DefaultDynamicKScale = 300
	DefaultSweepBonus    = 1.2
)

// TeamModel names a strategy for rating two-on-two matches.
type TeamModel string

const (
	// TeamModelAdvanced rates each player against both opponents individually
	// with the wide divisor and experience-based sensitivity.
	TeamModelAdvanced TeamModel = "advanced"
	// TeamModelAverage rates the two teams by their mean rating with the solo
	// divisor and fixed sensitivity; teammates receive the same delta.
	TeamModelAverage TeamModel = "average"
)

// ParseTeamModel converts a string to a TeamModel.
func ParseTeamModel(s string) (TeamModel, error) {
	switch TeamModel(strings.ToLower(strings.TrimSpace(s))) {
	case TeamModelAdvanced:
		return TeamModelAdvanced, nil
	case TeamModelAverage:
		return TeamModelAverage, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTeamModel, s)
}

// SweepPolicy decides which side of a series the sweep multiplier applies to.
type SweepPolicy string

const (
	// SweepWinnerOnly multiplies only the winning side's delta.
	SweepWinnerOnly SweepPolicy = "winner_only"
	// SweepBothSides multiplies both sides, keeping the adjustment zero-sum.
	SweepBothSides SweepPolicy = "both_sides"
)

// ParseSweepPolicy converts a string to a SweepPolicy.
func ParseSweepPolicy(s string) (SweepPolicy, error) {
	switch SweepPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case SweepWinnerOnly:
		return SweepWinnerOnly, nil
	case SweepBothSides:
		return SweepBothSides, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSweepPolicy, s)
}

// Config holds the tunable constants of the engine.
type Config struct {
	// Baseline is the rating assigned to a participant with no history.
	Baseline float64
	// SoloDivisor is the logistic divisor for one-on-one and team-average play.
	SoloDivisor float64
	// TeamDivisor is the logistic divisor for the advanced team model.
	TeamDivisor float64
	// FixedK is the sensitivity used by the solo and team-average models.
	FixedK float64
	// DynamicKMax and DynamicKScale shape the experience-based sensitivity
	// K(n) = DynamicKMax / (1 + n/DynamicKScale).
	DynamicKMax   float64
	DynamicKScale float64
	// SweepBonus multiplies rating deltas of a best-of-3 won 2-0.
	SweepBonus  float64
	SweepPolicy SweepPolicy
	// TeamModel is the default strategy for two-on-two matches.
	TeamModel TeamModel
}

// DefaultConfig returns the general engine configuration.
func DefaultConfig() Config {
	return Config{
		Baseline:      DefaultBaseline,
		SoloDivisor:   DefaultSoloDivisor,
		TeamDivisor:   DefaultTeamDivisor,
		FixedK:        DefaultFixedK,
		DynamicKMax:   DefaultDynamicKMax,
		DynamicKScale: DefaultDynamicKScale,
		SweepBonus:    DefaultSweepBonus,
		SweepPolicy:   SweepWinnerOnly,
		TeamModel:     TeamModelAdvanced,
	}
}

// Validate reports whether every parameter is usable.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"solo divisor", c.SoloDivisor},
		{"team divisor", c.TeamDivisor},
		{"fixed k", c.FixedK},
		{"dynamic k max", c.DynamicKMax},
		{"dynamic k scale", c.DynamicKScale},
		{"sweep bonus", c.SweepBonus},
	}
	for _, p := range positive {
		if !isFinite(p.v) || p.v <= 0 {
			return fmt.Errorf("%w: %s must be a positive number, got %v", ErrInvalidConfig, p.name, p.v)
		}
	}
	if c.SweepBonus < 1 {
		return fmt.Errorf("%w: sweep bonus must be at least 1, got %v", ErrInvalidConfig, c.SweepBonus)
	}
	if !isFinite(c.Baseline) {
		return fmt.Errorf("%w: baseline must be finite", ErrInvalidConfig)
	}
	if _, err := ParseSweepPolicy(string(c.SweepPolicy)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseTeamModel(string(c.TeamModel)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

package rating

import (
	"fmt"
	"strings"
)

// Side identifies one of the two opposing sides of a match.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// ParseSide converts "A"/"B" (case-insensitive) to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideA:
		return SideA, nil
	case SideB:
		return SideB, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Supported series formats.
const (
	BestOfOne   = 1
	BestOfThree = 3
)

// Score is the per-side game count of a series.
type Score struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (s Score) of(side Side) int {
	if side == SideA {
		return s.A
	}
	return s.B
}

// SeriesResult describes a resolved series.
type SeriesResult struct {
	Decided      bool  `json:"decided"`
	Winner       Side  `json:"winner,omitempty"`
	Score        Score `json:"score"`
	BestOf       int   `json:"best_of"`
	IsSweep      bool  `json:"is_sweep"`
	GamesCounted int   `json:"games_counted"`
	// Multiplier is the sweep bonus when IsSweep, otherwise 1.
	Multiplier float64 `json:"multiplier"`
}

// ResolveSeries runs the best-of-N state machine over the ordered game
// winners using the default sweep bonus. See Engine.ResolveSeries.
func ResolveSeries(winners []Side, bestOf int) (SeriesResult, error) {
	return resolveSeries(winners, bestOf, DefaultSweepBonus)
}

// ResolveSeries runs the best-of-N state machine over the ordered game
// winners. The series is decided the instant one side reaches
// bestOf/2+1 wins; any game listed after that point is rejected.
//
// An undecided series is an error: the returned result carries the partial
// score with Decided=false and no winner.
func (e *Engine) ResolveSeries(winners []Side, bestOf int) (SeriesResult, error) {
	return resolveSeries(winners, bestOf, e.cfg.SweepBonus)
}

func resolveSeries(winners []Side, bestOf int, bonus float64) (SeriesResult, error) {
	res := SeriesResult{BestOf: bestOf, Multiplier: 1}
	if bestOf != BestOfOne && bestOf != BestOfThree {
		return res, fmt.Errorf("%w: best-of-%d", ErrUnsupportedFormat, bestOf)
	}
	if len(winners) == 0 {
		return res, ErrEmptySeries
	}
	if len(winners) > bestOf {
		return res, fmt.Errorf("%w: %d games in best-of-%d", ErrTooManyGames, len(winners), bestOf)
	}

	threshold := bestOf/2 + 1
	for i, w := range winners {
		if res.Decided {
			return res, fmt.Errorf("%w: game %d recorded after the series was decided", ErrTooManyGames, i+1)
		}
		switch w {
		case SideA:
			res.Score.A++
		case SideB:
			res.Score.B++
		default:
			return res, fmt.Errorf("%w: game %d winner %q", ErrInvalidSide, i+1, w)
		}
		res.GamesCounted++
		if res.Score.of(w) == threshold {
			res.Decided = true
			res.Winner = w
		}
	}
	if !res.Decided {
		return res, fmt.Errorf("%w: score %d-%d in best-of-%d", ErrSeriesUndecided, res.Score.A, res.Score.B, bestOf)
	}

	if bestOf == BestOfThree && res.Score.of(res.Winner.Opponent()) == 0 {
		res.IsSweep = true
		res.Multiplier = bonus
	}
	return res, nil
}

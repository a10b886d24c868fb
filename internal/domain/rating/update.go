package rating

import (
	"fmt"
	"math"
)

// Change is the rating adjustment of one participant for one match.
type Change struct {
	Old         float64 `json:"old_rating"`
	New         float64 `json:"new_rating"`
	Delta       float64 `json:"delta"`
	Expected    float64 `json:"expected"`
	Sensitivity float64 `json:"sensitivity"`
	Multiplier  float64 `json:"multiplier"`
}

// Round rounds to the nearest integer with halves away from zero
// (0.5 -> 1, -0.5 -> -1, 2.5 -> 3). All rating updates use it.
func Round(x float64) float64 {
	return math.Round(x)
}

// UpdateRating applies the rating rule
//
//	new = Round(current + sensitivity*(actual-expected)*multiplier)
//
// actual must be exactly 0 or 1: draws are not modelled.
func UpdateRating(current, expected, actual, sensitivity, multiplier float64) (Change, error) {
	if err := checkUpdate(current, expected, actual, sensitivity, multiplier); err != nil {
		return Change{}, err
	}
	next := Round(current + sensitivity*(actual-expected)*multiplier)
	return Change{
		Old:         current,
		New:         next,
		Delta:       next - current,
		Expected:    expected,
		Sensitivity: sensitivity,
		Multiplier:  multiplier,
	}, nil
}

// UpdateRating is the package-level UpdateRating; it exists so callers
// holding an Engine need not import the function separately.
func (e *Engine) UpdateRating(current, expected, actual, sensitivity, multiplier float64) (Change, error) {
	return UpdateRating(current, expected, actual, sensitivity, multiplier)
}

// applyDelta shifts current by a precomputed integer delta. Used where
// teammates must receive an identical adjustment.
func applyDelta(current, expected, sensitivity, multiplier, delta float64) Change {
	return Change{
		Old:         current,
		New:         current + delta,
		Delta:       delta,
		Expected:    expected,
		Sensitivity: sensitivity,
		Multiplier:  multiplier,
	}
}

func checkUpdate(current, expected, actual, sensitivity, multiplier float64) error {
	if !isFinite(current) {
		return fmt.Errorf("%w: current rating %v", ErrNonFinite, current)
	}
	if actual != 0 && actual != 1 {
		return fmt.Errorf("%w: actual score must be 0 or 1, got %v", ErrInvalidOutcome, actual)
	}
	if !isFinite(expected) || expected < 0 || expected > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidExpected, expected)
	}
	if !isFinite(sensitivity) || sensitivity <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSensitivity, sensitivity)
	}
	if !isFinite(multiplier) || multiplier <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidMultiplier, multiplier)
	}
	return nil
}

func score(won bool) float64 {
	if won {
		return 1
	}
	return 0
}

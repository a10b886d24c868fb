package rating

import "fmt"

// Sensitivity returns the experience-based K-factor for a participant with
// gamesPlayed games: DynamicKMax / (1 + gamesPlayed/DynamicKScale).
// With defaults that is 50 at zero games, 25 at 300 and 12.5 at 900.
func (e *Engine) Sensitivity(gamesPlayed int) (float64, error) {
	if gamesPlayed < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeExperience, gamesPlayed)
	}
	return e.cfg.DynamicKMax / (1 + float64(gamesPlayed)/e.cfg.DynamicKScale), nil
}

// FixedSensitivity returns the constant K used by the solo and team-average models.
func (e *Engine) FixedSensitivity() float64 {
	return e.cfg.FixedK
}

package rating

import (
	"fmt"
	"math"
)

// Expected returns the logistic expectation that a participant rated self
// beats one rated opp: 1 / (1 + 10^((opp-self)/divisor)).
//
// The result lies in (0, 1) for finite inputs of moderate spread. The
// opponent's expectation must be obtained with the arguments swapped, not by
// subtracting from one.
func Expected(self, opp, divisor float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-self)/divisor))
}

// ExpectedVsTeam averages the pairwise expectation of self against each of
// the two opponents.
func ExpectedVsTeam(self, opp1, opp2, divisor float64) float64 {
	return (Expected(self, opp1, divisor) + Expected(self, opp2, divisor)) / 2
}

// ExpectedScore is Expected with the configured solo divisor.
func (e *Engine) ExpectedScore(self, opp float64) float64 {
	return Expected(self, opp, e.cfg.SoloDivisor)
}

// ExpectedScoreVsTeam is ExpectedVsTeam with the configured team divisor.
func (e *Engine) ExpectedScoreVsTeam(self, opp1, opp2 float64) float64 {
	return ExpectedVsTeam(self, opp1, opp2, e.cfg.TeamDivisor)
}

// ExpectedScoreChecked is ExpectedScore that rejects non-finite ratings.
func (e *Engine) ExpectedScoreChecked(self, opp float64) (float64, error) {
	if err := checkRatings(self, opp); err != nil {
		return 0, err
	}
	return e.ExpectedScore(self, opp), nil
}

// ExpectedScoreVsTeamChecked is ExpectedScoreVsTeam that rejects non-finite ratings.
func (e *Engine) ExpectedScoreVsTeamChecked(self, opp1, opp2 float64) (float64, error) {
	if err := checkRatings(self, opp1, opp2); err != nil {
		return 0, err
	}
	return e.ExpectedScoreVsTeam(self, opp1, opp2), nil
}

func checkRatings(ratings ...float64) error {
	for i, r := range ratings {
		if !isFinite(r) {
			return fmt.Errorf("%w: rating #%d is %v", ErrNonFinite, i+1, r)
		}
	}
	return nil
}

package rating

import "fmt"

// Participant is the rating state the engine needs for one player.
type Participant struct {
	Rating      float64 `json:"rating"`
	GamesPlayed int     `json:"games_played"`
}

func (p Participant) validate() error {
	if !isFinite(p.Rating) {
		return fmt.Errorf("%w: rating %v", ErrNonFinite, p.Rating)
	}
	if p.GamesPlayed < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeExperience, p.GamesPlayed)
	}
	return nil
}

// TeamInput holds the four players of a two-on-two match.
type TeamInput struct {
	A1, A2 Participant
	B1, B2 Participant
}

func (in TeamInput) validate() error {
	for i, p := range []Participant{in.A1, in.A2, in.B1, in.B2} {
		if err := p.validate(); err != nil {
			return fmt.Errorf("player %d: %w", i+1, err)
		}
	}
	return nil
}

// TeamResult holds the rating change of every player of a two-on-two match.
type TeamResult struct {
	Model TeamModel `json:"model"`
	A1    Change    `json:"a1"`
	A2    Change    `json:"a2"`
	B1    Change    `json:"b1"`
	B2    Change    `json:"b2"`
}

// TeamStrategy rates a two-on-two match. multA and multB are the per-side
// multipliers after the sweep policy has been applied.
type TeamStrategy interface {
	Model() TeamModel
	Resolve(in TeamInput, teamAWon bool, multA, multB float64) (TeamResult, error)
}

// advancedTeam credits each player against both opponents individually,
// with the team divisor and experience-based sensitivity.
type advancedTeam struct {
	e *Engine
}

func (s advancedTeam) Model() TeamModel { return TeamModelAdvanced }

func (s advancedTeam) Resolve(in TeamInput, teamAWon bool, multA, multB float64) (TeamResult, error) {
	sA, sB := score(teamAWon), score(!teamAWon)
	res := TeamResult{Model: TeamModelAdvanced}

	players := []struct {
		self       Participant
		opp1, opp2 Participant
		actual     float64
		mult       float64
		out        *Change
	}{
		{in.A1, in.B1, in.B2, sA, multA, &res.A1},
		{in.A2, in.B1, in.B2, sA, multA, &res.A2},
		{in.B1, in.A1, in.A2, sB, multB, &res.B1},
		{in.B2, in.A1, in.A2, sB, multB, &res.B2},
	}
	for i, p := range players {
		k, err := s.e.Sensitivity(p.self.GamesPlayed)
		if err != nil {
			return TeamResult{}, fmt.Errorf("player %d: %w", i+1, err)
		}
		expected := s.e.ExpectedScoreVsTeam(p.self.Rating, p.opp1.Rating, p.opp2.Rating)
		c, err := UpdateRating(p.self.Rating, expected, p.actual, k, p.mult)
		if err != nil {
			return TeamResult{}, fmt.Errorf("player %d: %w", i+1, err)
		}
		*p.out = c
	}
	return res, nil
}

// averageTeam rates the teams by their mean rating with the solo divisor
// and fixed sensitivity. Both teammates receive the same delta.
type averageTeam struct {
	e *Engine
}

func (s averageTeam) Model() TeamModel { return TeamModelAverage }

func (s averageTeam) Resolve(in TeamInput, teamAWon bool, multA, multB float64) (TeamResult, error) {
	avgA := (in.A1.Rating + in.A2.Rating) / 2
	avgB := (in.B1.Rating + in.B2.Rating) / 2
	expA := Expected(avgA, avgB, s.e.cfg.SoloDivisor)
	expB := Expected(avgB, avgA, s.e.cfg.SoloDivisor)
	k := s.e.cfg.FixedK
	sA, sB := score(teamAWon), score(!teamAWon)

	if err := checkUpdate(avgA, expA, sA, k, multA); err != nil {
		return TeamResult{}, fmt.Errorf("team A: %w", err)
	}
	if err := checkUpdate(avgB, expB, sB, k, multB); err != nil {
		return TeamResult{}, fmt.Errorf("team B: %w", err)
	}

	deltaA := Round(k * (sA - expA) * multA)
	deltaB := Round(k * (sB - expB) * multB)
	return TeamResult{
		Model: TeamModelAverage,
		A1:    applyDelta(in.A1.Rating, expA, k, multA, deltaA),
		A2:    applyDelta(in.A2.Rating, expA, k, multA, deltaA),
		B1:    applyDelta(in.B1.Rating, expB, k, multB, deltaB),
		B2:    applyDelta(in.B2.Rating, expB, k, multB, deltaB),
	}, nil
}

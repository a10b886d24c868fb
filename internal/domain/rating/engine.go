package rating

import (
	"fmt"
	"strings"
)

// Discipline is the kind of play a rating belongs to. Each participant
// carries an independent rating per discipline.
type Discipline string

const (
	DisciplineSolo Discipline = "solo"
	DisciplineTeam Discipline = "team"
)

// ParseDiscipline converts a string to a Discipline.
func ParseDiscipline(s string) (Discipline, error) {
	switch Discipline(strings.ToLower(strings.TrimSpace(s))) {
	case DisciplineSolo:
		return DisciplineSolo, nil
	case DisciplineTeam:
		return DisciplineTeam, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDiscipline, s)
}

// Size returns the number of participants per side.
func (d Discipline) Size() int {
	if d == DisciplineTeam {
		return 2
	}
	return 1
}

// Engine computes rating changes. It is immutable after construction.
type Engine struct {
	cfg        Config
	strategies map[TeamModel]TeamStrategy
}

// New constructs an Engine from the default configuration and options.
func New(opts ...Option) (*Engine, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewFromConfig(cfg)
}

// NewFromConfig constructs an Engine from an explicit configuration.
func NewFromConfig(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg}
	e.strategies = map[TeamModel]TeamStrategy{
		TeamModelAdvanced: advancedTeam{e: e},
		TeamModelAverage:  averageTeam{e: e},
	}
	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Baseline returns the rating of a participant with no history.
func (e *Engine) Baseline() float64 { return e.cfg.Baseline }

// Strategy returns the team strategy for m. An empty model selects the
// configured default.
func (e *Engine) Strategy(m TeamModel) (TeamStrategy, error) {
	if m == "" {
		m = e.cfg.TeamModel
	}
	s, ok := e.strategies[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTeamModel, m)
	}
	return s, nil
}

// sideMultipliers splits a series multiplier between the sides according to
// the sweep policy.
func (e *Engine) sideMultipliers(aWon bool, multiplier float64) (multA, multB float64) {
	if e.cfg.SweepPolicy == SweepBothSides {
		return multiplier, multiplier
	}
	if aWon {
		return multiplier, 1
	}
	return 1, multiplier
}

// SoloResult holds both participants' changes for a one-on-one match.
type SoloResult struct {
	A Change `json:"a"`
	B Change `json:"b"`
}

// ResolveSoloMatch rates a one-on-one match with the fixed sensitivity.
// multiplier is split between the sides by the sweep policy; pass 1 for a
// plain match. With multiplier 1 the two deltas sum to zero.
func (e *Engine) ResolveSoloMatch(ratingA, ratingB float64, aWon bool, multiplier float64) (SoloResult, error) {
	if err := checkRatings(ratingA, ratingB); err != nil {
		return SoloResult{}, err
	}
	multA, multB := e.sideMultipliers(aWon, multiplier)
	k := e.cfg.FixedK

	a, err := UpdateRating(ratingA, e.ExpectedScore(ratingA, ratingB), score(aWon), k, multA)
	if err != nil {
		return SoloResult{}, fmt.Errorf("side A: %w", err)
	}
	b, err := UpdateRating(ratingB, e.ExpectedScore(ratingB, ratingA), score(!aWon), k, multB)
	if err != nil {
		return SoloResult{}, fmt.Errorf("side B: %w", err)
	}
	return SoloResult{A: a, B: b}, nil
}

// ResolveTeamMatch rates a two-on-two match with the strategy named by
// model, or the configured default when model is empty.
func (e *Engine) ResolveTeamMatch(in TeamInput, teamAWon bool, multiplier float64, model TeamModel) (TeamResult, error) {
	if err := in.validate(); err != nil {
		return TeamResult{}, err
	}
	s, err := e.Strategy(model)
	if err != nil {
		return TeamResult{}, err
	}
	multA, multB := e.sideMultipliers(teamAWon, multiplier)
	return s.Resolve(in, teamAWon, multA, multB)
}

// MatchInput is a recorded match: the current state of every participant,
// the ordered game winners and the series format.
type MatchInput struct {
	Discipline Discipline
	SideA      []Participant
	SideB      []Participant
	Winners    []Side
	BestOf     int
	// TeamModel overrides the default team strategy; ignored for solo play.
	TeamModel TeamModel
}

// Outcome is the full result of resolving a match. SideA and SideB are in
// the same order as the input participants.
type Outcome struct {
	Discipline Discipline   `json:"discipline"`
	Series     SeriesResult `json:"series"`
	TeamModel  TeamModel    `json:"team_model,omitempty"`
	SideA      []Change     `json:"side_a"`
	SideB      []Change     `json:"side_b"`
}

// Resolve resolves the series and rates the match. Preview and
// authoritative recomputation both go through it, so identical input
// always yields identical output.
func (e *Engine) Resolve(in MatchInput) (Outcome, error) {
	n := in.Discipline.Size()
	if in.Discipline != DisciplineSolo && in.Discipline != DisciplineTeam {
		return Outcome{}, fmt.Errorf("%w: %w: %q", ErrInvalidMatch, ErrUnknownDiscipline, in.Discipline)
	}
	if len(in.SideA) != n || len(in.SideB) != n {
		return Outcome{}, fmt.Errorf("%w: %s play needs %d participant(s) per side, got %d and %d",
			ErrInvalidMatch, in.Discipline, n, len(in.SideA), len(in.SideB))
	}

	series, err := e.ResolveSeries(in.Winners, in.BestOf)
	if err != nil {
		return Outcome{Discipline: in.Discipline, Series: series}, err
	}
	aWon := series.Winner == SideA
	out := Outcome{Discipline: in.Discipline, Series: series}

	if in.Discipline == DisciplineSolo {
		if err := in.SideA[0].validate(); err != nil {
			return out, err
		}
		if err := in.SideB[0].validate(); err != nil {
			return out, err
		}
		res, err := e.ResolveSoloMatch(in.SideA[0].Rating, in.SideB[0].Rating, aWon, series.Multiplier)
		if err != nil {
			return out, err
		}
		out.SideA = []Change{res.A}
		out.SideB = []Change{res.B}
		return out, nil
	}

	res, err := e.ResolveTeamMatch(TeamInput{
		A1: in.SideA[0], A2: in.SideA[1],
		B1: in.SideB[0], B2: in.SideB[1],
	}, aWon, series.Multiplier, in.TeamModel)
	if err != nil {
		return out, err
	}
	out.TeamModel = res.Model
	out.SideA = []Change{res.A1, res.A2}
	out.SideB = []Change{res.B1, res.B2}
	return out, nil
}

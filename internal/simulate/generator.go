package simulate

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/okian/foosrank/internal/domain/rating"
)

// Player is a simulated participant with a hidden true skill.
type Player struct {
	ID    string  `json:"id"`
	Skill float64 `json:"skill"`
}

// MatchRequest is the POST /matches body.
type MatchRequest struct {
	MatchID    string   `json:"match_id"`
	Discipline string   `json:"discipline"`
	TeamA      []string `json:"team_a"`
	TeamB      []string `json:"team_b"`
	Winners    []string `json:"winners"`
	BestOf     int      `json:"best_of"`
	PlayedAt   string   `json:"played_at,omitempty"`
}

// Generator produces players and matches from a seeded source so runs can
// be replayed. Only match IDs are random per run.
type Generator struct {
	cfg   *Config
	rnd   *rand.Rand
	faker *gofakeit.Faker
}

// NewGenerator creates a generator for cfg.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		cfg:   cfg,
		rnd:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulation, not security
		faker: gofakeit.New(cfg.Seed),
	}
}

// Players creates cfg.Players players with normally distributed skill.
// IDs are readable usernames suffixed with the player index.
func (g *Generator) Players() []Player {
	players := make([]Player, g.cfg.Players)
	for i := range players {
		players[i] = Player{
			ID:    fmt.Sprintf("%s-%d", strings.ToLower(g.faker.Username()), i),
			Skill: g.cfg.SkillMean + g.rnd.NormFloat64()*g.cfg.SkillStdDev,
		}
	}
	return players
}

// Matches creates cfg.Matches matches between the given players. Game
// winners are drawn from the expected score on hidden skill.
func (g *Generator) Matches(players []Player, start time.Time) []MatchRequest {
	matches := make([]MatchRequest, g.cfg.Matches)
	for i := range matches {
		matches[i] = g.match(players, start.Add(time.Duration(i)*time.Second))
	}
	return matches
}

func (g *Generator) match(players []Player, at time.Time) MatchRequest {
	d := rating.DisciplineSolo
	if g.rnd.Float64() < g.cfg.TeamRatio {
		d = rating.DisciplineTeam
	}
	size := d.Size()

	picked := g.pick(players, 2*size)
	teamA, teamB := picked[:size], picked[size:]

	bestOf := rating.BestOfOne
	if g.rnd.Float64() < g.cfg.SeriesRatio {
		bestOf = rating.BestOfThree
	}

	pA := rating.Expected(meanSkill(teamA), meanSkill(teamB), g.cfg.Divisor)
	need := bestOf/2 + 1
	var winsA, winsB int
	var winners []string
	for winsA < need && winsB < need {
		if g.rnd.Float64() < pA {
			winsA++
			winners = append(winners, string(rating.SideA))
		} else {
			winsB++
			winners = append(winners, string(rating.SideB))
		}
	}

	return MatchRequest{
		MatchID:    uuid.NewString(),
		Discipline: string(d),
		TeamA:      ids(teamA),
		TeamB:      ids(teamB),
		Winners:    winners,
		BestOf:     bestOf,
		PlayedAt:   at.UTC().Format(time.RFC3339),
	}
}

// pick returns n distinct players.
func (g *Generator) pick(players []Player, n int) []Player {
	idx := g.rnd.Perm(len(players))[:n]
	out := make([]Player, n)
	for i, j := range idx {
		out[i] = players[j]
	}
	return out
}

func meanSkill(ps []Player) float64 {
	var sum float64
	for _, p := range ps {
		sum += p.Skill
	}
	return sum / float64(len(ps))
}

func ids(ps []Player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

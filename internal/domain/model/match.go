// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/foosrank/internal/domain/rating"
)

// Match is a recorded match submitted by clients.
// Fields mirror the OpenAPI schema for /matches.
type Match struct {
	ID         string            // unique id for idempotency
	Discipline rating.Discipline // solo or team
	TeamA      []string          // participant ids of side A
	TeamB      []string          // participant ids of side B
	Winners    []rating.Side     // winner of each game, in order
	BestOf     int               // 1 or 3
	TeamModel  rating.TeamModel  // optional override of the default team model
	PlayedAt   time.Time
}

// Participants returns side A followed by side B.
func (m Match) Participants() []string {
	ids := make([]string, 0, len(m.TeamA)+len(m.TeamB))
	ids = append(ids, m.TeamA...)
	return append(ids, m.TeamB...)
}

// Validate checks the shape of the match. Series semantics are left to the
// rating engine.
func (m Match) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: match id must not be empty", rating.ErrInvalidMatch)
	}
	if _, err := rating.ParseDiscipline(string(m.Discipline)); err != nil {
		return fmt.Errorf("%w: %w", rating.ErrInvalidMatch, err)
	}
	n := m.Discipline.Size()
	if len(m.TeamA) != n || len(m.TeamB) != n {
		return fmt.Errorf("%w: %s play needs %d participant(s) per side, got %d and %d",
			rating.ErrInvalidMatch, m.Discipline, n, len(m.TeamA), len(m.TeamB))
	}
	seen := make(map[string]struct{}, 2*n)
	for _, id := range m.Participants() {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: participant id must not be empty", rating.ErrInvalidMatch)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: participant %q appears more than once", rating.ErrInvalidMatch, id)
		}
		seen[id] = struct{}{}
	}
	if m.TeamModel != "" {
		if m.Discipline != rating.DisciplineTeam {
			return fmt.Errorf("%w: team_model only applies to team play", rating.ErrInvalidMatch)
		}
		if _, err := rating.ParseTeamModel(string(m.TeamModel)); err != nil {
			return fmt.Errorf("%w: %w", rating.ErrInvalidMatch, err)
		}
	}
	return nil
}

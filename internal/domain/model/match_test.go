package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/foosrank/internal/domain/model"
	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/smartystreets/goconvey/convey"
)

func soloMatch() model.Match {
	return model.Match{
		ID:         "m-1",
		Discipline: rating.DisciplineSolo,
		TeamA:      []string{"alice"},
		TeamB:      []string{"bob"},
		Winners:    []rating.Side{rating.SideA, rating.SideA},
		BestOf:     3,
		PlayedAt:   time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
	}
}

func teamMatch() model.Match {
	return model.Match{
		ID:         "m-2",
		Discipline: rating.DisciplineTeam,
		TeamA:      []string{"alice", "bob"},
		TeamB:      []string{"carol", "dave"},
		Winners:    []rating.Side{rating.SideB},
		BestOf:     1,
	}
}

func TestMatch(t *testing.T) {
	convey.Convey("Given a recorded match", t, func() {
		convey.Convey("When listing its participants", func() {
			ids := teamMatch().Participants()

			convey.Convey("Then side A comes before side B", func() {
				convey.So(ids, convey.ShouldResemble, []string{"alice", "bob", "carol", "dave"})
			})
		})

		convey.Convey("When the match is well formed", func() {
			convey.Convey("Then validation passes for both disciplines", func() {
				convey.So(soloMatch().Validate(), convey.ShouldBeNil)
				convey.So(teamMatch().Validate(), convey.ShouldBeNil)

				m := teamMatch()
				m.TeamModel = rating.TeamModelAverage
				convey.So(m.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the match is malformed", func() {
			cases := []struct {
				name   string
				mutate func(m *model.Match)
			}{
				{"it has no id", func(m *model.Match) { m.ID = "" }},
				{"the discipline is unknown", func(m *model.Match) { m.Discipline = "triples" }},
				{"the opponent is missing", func(m *model.Match) { m.TeamB = nil }},
				{"a solo side has two players", func(m *model.Match) { m.TeamA = []string{"alice", "erin"} }},
				{"a participant id is blank", func(m *model.Match) { m.TeamB = []string{" "} }},
				{"a player faces themself", func(m *model.Match) { m.TeamB = []string{"alice"} }},
				{"a solo match names a team model", func(m *model.Match) { m.TeamModel = rating.TeamModelAverage }},
			}

			convey.Convey("Then each problem is an invalid match", func() {
				for _, tc := range cases {
					m := soloMatch()
					tc.mutate(&m)
					err := m.Validate()
					convey.So(errors.Is(err, rating.ErrInvalidMatch), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When a team match names an unknown model", func() {
			m := teamMatch()
			m.TeamModel = "elo3"
			err := m.Validate()

			convey.Convey("Then both kinds are reported", func() {
				convey.So(errors.Is(err, rating.ErrInvalidMatch), convey.ShouldBeTrue)
				convey.So(errors.Is(err, rating.ErrUnknownTeamModel), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a player appears on both sides of a team match", func() {
			m := teamMatch()
			m.TeamB = []string{"carol", "alice"}

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(m.Validate(), rating.ErrInvalidMatch), convey.ShouldBeTrue)
			})
		})
	})
}

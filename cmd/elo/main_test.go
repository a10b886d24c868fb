package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/foosrank/internal/domain/rating"
)

func run(args ...string) (*bytes.Buffer, error) {
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"elo"}, args...))
	return &out, err
}

func TestExpected(t *testing.T) {
	convey.Convey("Given the expected command", t, func() {
		convey.Convey("When both players are equal", func() {
			out, err := run("expected", "--self", "1000", "--opp", "1000")
			convey.So(err, convey.ShouldBeNil)

			var got map[string]float64
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got["expected"], convey.ShouldEqual, 0.5)
		})

		convey.Convey("When self is 200 points stronger", func() {
			out, err := run("expected", "--self", "1200", "--opp", "1000")
			convey.So(err, convey.ShouldBeNil)

			var got map[string]float64
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got["expected"], convey.ShouldAlmostEqual, 0.7597, 0.0001)
		})

		convey.Convey("When a second opponent is given", func() {
			out, err := run("expected", "--self", "1000", "--opp", "1000", "--opp2", "1000")
			convey.So(err, convey.ShouldBeNil)

			var got map[string]float64
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got["expected"], convey.ShouldEqual, 0.5)
		})
	})
}

func TestSensitivity(t *testing.T) {
	convey.Convey("Given the sensitivity command", t, func() {
		out, err := run("sensitivity", "--games", "300")
		convey.So(err, convey.ShouldBeNil)

		var got struct {
			GamesPlayed int     `json:"games_played"`
			DynamicK    float64 `json:"dynamic_k"`
			FixedK      float64 `json:"fixed_k"`
		}
		convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
		convey.So(got.GamesPlayed, convey.ShouldEqual, 300)
		convey.So(got.DynamicK, convey.ShouldEqual, 25.0)
		convey.So(got.FixedK, convey.ShouldEqual, 32.0)

		convey.Convey("And negative experience is rejected", func() {
			_, err := run("sensitivity", "--games=-1")
			convey.So(errors.Is(err, rating.ErrNegativeExperience), convey.ShouldBeTrue)
		})
	})
}

func TestSolo(t *testing.T) {
	convey.Convey("Given the solo command", t, func() {
		convey.Convey("When equal players meet", func() {
			out, err := run("solo", "--a", "1000", "--b", "1000", "--winner", "A")
			convey.So(err, convey.ShouldBeNil)

			var got rating.SoloResult
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got.A.New, convey.ShouldEqual, 1016.0)
			convey.So(got.B.New, convey.ShouldEqual, 984.0)
		})

		convey.Convey("When the winner is not a side", func() {
			_, err := run("solo", "--a", "1000", "--b", "1000", "--winner", "C")
			convey.So(errors.Is(err, rating.ErrInvalidSide), convey.ShouldBeTrue)
		})

		convey.Convey("When the fixed sensitivity is not positive", func() {
			out, err := run("--fixed-k=-5", "solo", "--a", "1000", "--b", "1000", "--winner", "A")
			convey.So(errors.Is(err, rating.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(out.Len(), convey.ShouldEqual, 0)
		})

		convey.Convey("When a required flag is missing", func() {
			_, err := run("solo", "--a", "1000", "--winner", "A")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestTeam(t *testing.T) {
	convey.Convey("Given the team command", t, func() {
		convey.Convey("When four new players meet", func() {
			out, err := run("team", "--a", "1000,1000", "--b", "1000,1000", "--winner", "A")
			convey.So(err, convey.ShouldBeNil)

			var got rating.TeamResult
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got.Model, convey.ShouldEqual, rating.TeamModelAdvanced)
			convey.So(got.A1.Delta, convey.ShouldEqual, 25.0)
			convey.So(got.A2.Delta, convey.ShouldEqual, 25.0)
			convey.So(got.B1.Delta, convey.ShouldEqual, -25.0)
			convey.So(got.B2.Delta, convey.ShouldEqual, -25.0)
		})

		convey.Convey("When the average model is requested", func() {
			out, err := run("team", "--a", "1000,1000", "--b", "1000,1000", "--winner", "B", "--model", "average")
			convey.So(err, convey.ShouldBeNil)

			var got rating.TeamResult
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got.Model, convey.ShouldEqual, rating.TeamModelAverage)
			convey.So(got.B1.Delta, convey.ShouldBeGreaterThan, 0)
			convey.So(got.A1.Delta, convey.ShouldBeLessThan, 0)
		})

		convey.Convey("When a side has one rating", func() {
			_, err := run("team", "--a", "1000", "--b", "1000,1000", "--winner", "A")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestSeries(t *testing.T) {
	convey.Convey("Given the series command", t, func() {
		convey.Convey("When side A sweeps a best-of-3", func() {
			out, err := run("series", "--winners", "A,A")
			convey.So(err, convey.ShouldBeNil)

			var got rating.SeriesResult
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got.Decided, convey.ShouldBeTrue)
			convey.So(got.Winner, convey.ShouldEqual, rating.SideA)
			convey.So(got.IsSweep, convey.ShouldBeTrue)
			convey.So(got.Multiplier, convey.ShouldEqual, 1.2)
		})

		convey.Convey("When a custom sweep bonus is set globally", func() {
			out, err := run("--sweep-bonus", "1.5", "series", "--winners", "B,B")
			convey.So(err, convey.ShouldBeNil)

			var got rating.SeriesResult
			convey.So(json.Unmarshal(out.Bytes(), &got), convey.ShouldBeNil)
			convey.So(got.Multiplier, convey.ShouldEqual, 1.5)
		})

		convey.Convey("When the series is undecided", func() {
			_, err := run("series", "--winners", "A,B")
			convey.So(errors.Is(err, rating.ErrSeriesUndecided), convey.ShouldBeTrue)
		})
	})
}

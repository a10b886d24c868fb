// Command elo is an offline calculator over the foosrank rating engine.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/okian/foosrank/internal/domain/rating"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		os.Stderr.WriteString("elo: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "elo",
		Usage:  "compute foosball ELO ratings",
		Writer: out,
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "baseline", Value: rating.DefaultBaseline, Usage: "rating of a new participant"},
			&cli.Float64Flag{Name: "solo-divisor", Value: rating.DefaultSoloDivisor, Usage: "logistic divisor for solo and team-average play"},
			&cli.Float64Flag{Name: "team-divisor", Value: rating.DefaultTeamDivisor, Usage: "logistic divisor for the advanced team model"},
			&cli.Float64Flag{Name: "fixed-k", Value: rating.DefaultFixedK, Usage: "fixed sensitivity"},
			&cli.Float64Flag{Name: "sweep-bonus", Value: rating.DefaultSweepBonus, Usage: "multiplier for a 2-0 best-of-3"},
			&cli.StringFlag{Name: "sweep-policy", Value: string(rating.SweepWinnerOnly), Usage: "winner_only or both_sides"},
			&cli.StringFlag{Name: "team-model", Value: string(rating.TeamModelAdvanced), Usage: "default team model: advanced or average"},
		},
		Commands: []*cli.Command{
			expectedCommand(),
			sensitivityCommand(),
			soloCommand(),
			teamCommand(),
			seriesCommand(),
		},
	}
}

// engine builds a rating engine from the global flags.
func engine(c *cli.Context) (*rating.Engine, error) {
	policy, err := rating.ParseSweepPolicy(c.String("sweep-policy"))
	if err != nil {
		return nil, err
	}
	model, err := rating.ParseTeamModel(c.String("team-model"))
	if err != nil {
		return nil, err
	}
	return rating.New(
		rating.WithBaseline(c.Float64("baseline")),
		rating.WithSoloDivisor(c.Float64("solo-divisor")),
		rating.WithTeamDivisor(c.Float64("team-divisor")),
		rating.WithFixedK(c.Float64("fixed-k")),
		rating.WithSweepBonus(c.Float64("sweep-bonus")),
		rating.WithSweepPolicy(policy),
		rating.WithTeamModel(model),
	)
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func expectedCommand() *cli.Command {
	return &cli.Command{
		Name:  "expected",
		Usage: "expected score of self against one opponent, or against a team with --opp2",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "self", Required: true},
			&cli.Float64Flag{Name: "opp", Required: true},
			&cli.Float64Flag{Name: "opp2", Usage: "second opponent; uses the team divisor"},
		},
		Action: func(c *cli.Context) error {
			e, err := engine(c)
			if err != nil {
				return err
			}
			var x float64
			if c.IsSet("opp2") {
				x, err = e.ExpectedScoreVsTeamChecked(c.Float64("self"), c.Float64("opp"), c.Float64("opp2"))
			} else {
				x, err = e.ExpectedScoreChecked(c.Float64("self"), c.Float64("opp"))
			}
			if err != nil {
				return err
			}
			return printJSON(c, map[string]float64{"expected": x})
		},
	}
}

func sensitivityCommand() *cli.Command {
	return &cli.Command{
		Name:  "sensitivity",
		Usage: "K-factor for a participant with the given experience",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Usage: "games played"},
		},
		Action: func(c *cli.Context) error {
			e, err := engine(c)
			if err != nil {
				return err
			}
			k, err := e.Sensitivity(c.Int("games"))
			if err != nil {
				return err
			}
			return printJSON(c, struct {
				GamesPlayed int     `json:"games_played"`
				DynamicK    float64 `json:"dynamic_k"`
				FixedK      float64 `json:"fixed_k"`
			}{c.Int("games"), k, e.FixedSensitivity()})
		},
	}
}

func soloCommand() *cli.Command {
	return &cli.Command{
		Name:  "solo",
		Usage: "rate a one-on-one match",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "a", Required: true, Usage: "rating of side A"},
			&cli.Float64Flag{Name: "b", Required: true, Usage: "rating of side B"},
			&cli.StringFlag{Name: "winner", Required: true, Usage: "A or B"},
			&cli.Float64Flag{Name: "multiplier", Value: 1, Usage: "series multiplier"},
		},
		Action: func(c *cli.Context) error {
			e, err := engine(c)
			if err != nil {
				return err
			}
			w, err := rating.ParseSide(c.String("winner"))
			if err != nil {
				return err
			}
			res, err := e.ResolveSoloMatch(c.Float64("a"), c.Float64("b"), w == rating.SideA, c.Float64("multiplier"))
			if err != nil {
				return err
			}
			return printJSON(c, res)
		},
	}
}

func teamCommand() *cli.Command {
	return &cli.Command{
		Name:  "team",
		Usage: "rate a two-on-two match",
		Flags: []cli.Flag{
			&cli.Float64SliceFlag{Name: "a", Required: true, Usage: "ratings of side A, e.g. 1000,1050"},
			&cli.Float64SliceFlag{Name: "b", Required: true, Usage: "ratings of side B"},
			&cli.IntSliceFlag{Name: "a-games", Usage: "games played by side A"},
			&cli.IntSliceFlag{Name: "b-games", Usage: "games played by side B"},
			&cli.StringFlag{Name: "winner", Required: true, Usage: "A or B"},
			&cli.StringFlag{Name: "model", Usage: "advanced or average; defaults to --team-model"},
			&cli.Float64Flag{Name: "multiplier", Value: 1, Usage: "series multiplier"},
		},
		Action: func(c *cli.Context) error {
			e, err := engine(c)
			if err != nil {
				return err
			}
			a, err := pair("a", c.Float64Slice("a"), c.IntSlice("a-games"))
			if err != nil {
				return err
			}
			b, err := pair("b", c.Float64Slice("b"), c.IntSlice("b-games"))
			if err != nil {
				return err
			}
			w, err := rating.ParseSide(c.String("winner"))
			if err != nil {
				return err
			}
			var model rating.TeamModel
			if c.IsSet("model") {
				if model, err = rating.ParseTeamModel(c.String("model")); err != nil {
					return err
				}
			}
			in := rating.TeamInput{A1: a[0], A2: a[1], B1: b[0], B2: b[1]}
			res, err := e.ResolveTeamMatch(in, w == rating.SideA, c.Float64("multiplier"), model)
			if err != nil {
				return err
			}
			return printJSON(c, res)
		},
	}
}

// pair builds the two participants of one side. Missing game counts are zero.
func pair(side string, ratings []float64, games []int) ([2]rating.Participant, error) {
	var out [2]rating.Participant
	if len(ratings) != 2 {
		return out, fmt.Errorf("--%s needs exactly two ratings, got %d", side, len(ratings))
	}
	if len(games) > 2 {
		return out, fmt.Errorf("--%s-games takes at most two values, got %d", side, len(games))
	}
	for i := range out {
		out[i].Rating = ratings[i]
		if i < len(games) {
			out[i].GamesPlayed = games[i]
		}
	}
	return out, nil
}

func seriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "series",
		Usage: "resolve a best-of-N series from its game winners",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "winners", Required: true, Usage: "game winners in order, e.g. A,B,A"},
			&cli.IntFlag{Name: "best-of", Value: rating.BestOfThree, Usage: "1 or 3"},
		},
		Action: func(c *cli.Context) error {
			e, err := engine(c)
			if err != nil {
				return err
			}
			raw := c.StringSlice("winners")
			winners := make([]rating.Side, len(raw))
			for i, w := range raw {
				if winners[i], err = rating.ParseSide(w); err != nil {
					return fmt.Errorf("game %d: %w", i+1, err)
				}
			}
			res, err := e.ResolveSeries(winners, c.Int("best-of"))
			if err != nil {
				return err
			}
			return printJSON(c, res)
		},
	}
}

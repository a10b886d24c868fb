// Command simulate plays synthetic matches against a running foosrank
// service and checks the resulting ratings.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/okian/foosrank/internal/simulate"
	"github.com/okian/foosrank/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("simulate: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "simulate",
		Usage: "drive a foosrank service with synthetic matches",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: simulate.DefaultBaseURL, Usage: "base URL of the service"},
			&cli.IntFlag{Name: "players", Value: simulate.DefaultPlayers},
			&cli.IntFlag{Name: "matches", Value: simulate.DefaultMatches},
			&cli.Float64Flag{Name: "team-ratio", Value: simulate.DefaultTeamRatio, Usage: "share of two-on-two matches"},
			&cli.Float64Flag{Name: "series-ratio", Value: simulate.DefaultSeriesRatio, Usage: "share of best-of-three matches"},
			&cli.Float64Flag{Name: "skill-mean", Value: simulate.DefaultSkillMean},
			&cli.Float64Flag{Name: "skill-stddev", Value: simulate.DefaultSkillStdDev},
			&cli.Float64Flag{Name: "divisor", Value: rating.DefaultSoloDivisor, Usage: "divisor turning hidden skill into win probability"},
			&cli.IntFlag{Name: "top", Value: simulate.DefaultTopN, Usage: "leaderboard entries to verify"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * 2, Usage: "concurrent HTTP workers"},
			&cli.DurationFlag{Name: "timeout", Value: simulate.DefaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "process-timeout", Value: simulate.DefaultProcessTimeout, Usage: "how long to wait for the queue to drain"},
			&cli.Float64Flag{Name: "min-correlation", Value: simulate.DefaultMinCorrelation, Usage: "required skill/rating correlation; 0 disables"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "random seed"},
			&cli.StringFlag{Name: "output", Usage: "write generated players and matches to this JSON file"},
			&cli.StringFlag{Name: "log-format", Value: logger.FormatText, Usage: "text or json"},
		},
		Action: func(c *cli.Context) error {
			if err := logger.Init(logger.WithFormat(c.String("log-format"))); err != nil {
				return err
			}
			_, err := simulate.Run(c.Context, &simulate.Config{
				BaseURL:        c.String("url"),
				Players:        c.Int("players"),
				Matches:        c.Int("matches"),
				TeamRatio:      c.Float64("team-ratio"),
				SeriesRatio:    c.Float64("series-ratio"),
				SkillMean:      c.Float64("skill-mean"),
				SkillStdDev:    c.Float64("skill-stddev"),
				Divisor:        c.Float64("divisor"),
				TopN:           c.Int("top"),
				Workers:        c.Int("workers"),
				Timeout:        c.Duration("timeout"),
				ProcessTimeout: c.Duration("process-timeout"),
				MinCorrelation: c.Float64("min-correlation"),
				Seed:           c.Uint64("seed"),
				OutputFile:     c.String("output"),
			})
			return err
		},
	}
}

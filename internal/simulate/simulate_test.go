package simulate

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/foosrank/internal/adapters/http/api"
	service "github.com/okian/foosrank/internal/app"
	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/okian/foosrank/internal/domain/types"
	"github.com/okian/foosrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:        baseURL,
		Players:        12,
		Matches:        150,
		TeamRatio:      0.3,
		SeriesRatio:    0.4,
		SkillMean:      DefaultSkillMean,
		SkillStdDev:    DefaultSkillStdDev,
		Divisor:        rating.DefaultSoloDivisor,
		TopN:           DefaultTopN,
		Workers:        4,
		Timeout:        5 * time.Second,
		ProcessTimeout: 10 * time.Second,
		Seed:           42,
	}
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := testConfig("http://unused")
		players := NewGenerator(cfg).Players()
		matches := NewGenerator(cfg).Matches(players, time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))

		Convey("Then it produces the requested players and matches", func() {
			So(players, ShouldHaveLength, cfg.Players)
			So(matches, ShouldHaveLength, cfg.Matches)
		})

		Convey("Then players are replayable from the seed", func() {
			So(NewGenerator(cfg).Players(), ShouldResemble, players)
		})

		Convey("Then every match is valid and decided", func() {
			var team, series int
			for _, m := range matches {
				d, err := rating.ParseDiscipline(m.Discipline)
				So(err, ShouldBeNil)
				So(m.TeamA, ShouldHaveLength, d.Size())
				So(m.TeamB, ShouldHaveLength, d.Size())

				seen := map[string]bool{}
				for _, id := range append(append([]string{}, m.TeamA...), m.TeamB...) {
					So(seen[id], ShouldBeFalse)
					seen[id] = true
				}

				winners := make([]rating.Side, len(m.Winners))
				for i, w := range m.Winners {
					winners[i], err = rating.ParseSide(w)
					So(err, ShouldBeNil)
				}
				res, err := rating.ResolveSeries(winners, m.BestOf)
				So(err, ShouldBeNil)
				So(res.Decided, ShouldBeTrue)
				So(res.GamesCounted, ShouldEqual, len(winners))

				if d == rating.DisciplineTeam {
					team++
				}
				if m.BestOf == rating.BestOfThree {
					series++
				}
			}
			So(team, ShouldBeGreaterThan, 0)
			So(series, ShouldBeGreaterThan, 0)
		})
	})
}

func TestSpearman(t *testing.T) {
	Convey("Given rank correlation", t, func() {
		Convey("Then identical orderings correlate fully", func() {
			So(spearman([]float64{1, 2, 3, 4}, []float64{10, 20, 25, 90}), ShouldAlmostEqual, 1.0)
		})

		Convey("Then reversed orderings anti-correlate fully", func() {
			So(spearman([]float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}), ShouldAlmostEqual, -1.0)
		})

		Convey("Then ties get average ranks", func() {
			So(fractionalRanks([]float64{5, 1, 5, 3}), ShouldResemble, []float64{3.5, 1, 3.5, 2})
		})

		Convey("Then a constant side has no correlation", func() {
			So(math.IsNaN(spearman([]float64{1, 2, 3}, []float64{7, 7, 7})), ShouldBeTrue)
		})
	})
}

func TestVerifyBoard(t *testing.T) {
	Convey("Given leaderboard pages", t, func() {
		Convey("Then a dense, ordered page passes", func() {
			So(verifyBoard([]types.Entry{
				{Rank: 1, ParticipantID: "a", Rating: 1040},
				{Rank: 2, ParticipantID: "b", Rating: 1016},
				{Rank: 2, ParticipantID: "c", Rating: 1016},
				{Rank: 3, ParticipantID: "d", Rating: 990},
			}), ShouldBeNil)
		})

		cases := map[string][]types.Entry{
			"first rank not 1": {{Rank: 2, ParticipantID: "a", Rating: 1000}},
			"unsorted": {
				{Rank: 1, ParticipantID: "a", Rating: 1000},
				{Rank: 2, ParticipantID: "b", Rating: 1010},
			},
			"tie not by ID": {
				{Rank: 1, ParticipantID: "b", Rating: 1000},
				{Rank: 1, ParticipantID: "a", Rating: 1000},
			},
			"tie split": {
				{Rank: 1, ParticipantID: "a", Rating: 1000},
				{Rank: 2, ParticipantID: "b", Rating: 1000},
			},
			"rank gap": {
				{Rank: 1, ParticipantID: "a", Rating: 1000},
				{Rank: 3, ParticipantID: "b", Rating: 990},
			},
		}
		for name, board := range cases {
			Convey("Then a page with "+name+" fails", func() {
				So(errors.Is(verifyBoard(board), ErrInconsistent), ShouldBeTrue)
			})
		}
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given a simulation config", t, func() {
		Convey("Then the test config is valid", func() {
			So(testConfig("http://x").Validate(), ShouldBeNil)
		})

		Convey("Then too few players are rejected", func() {
			cfg := testConfig("http://x")
			cfg.Players = 3
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("Then a ratio outside [0,1] is rejected", func() {
			cfg := testConfig("http://x")
			cfg.TeamRatio = 1.5
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running foosrank service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(4), service.WithQueueSize(1_000))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a simulation runs against it", func() {
			cfg := testConfig(srv.URL)
			cfg.OutputFile = filepath.Join(t.TempDir(), "run", "matches.json")
			stats, err := Run(ctx, cfg)

			Convey("Then every match is accepted and rated", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesSubmitted, ShouldEqual, cfg.Matches)
				So(stats.MatchesAccepted, ShouldEqual, cfg.Matches)
				So(stats.MatchesFailed, ShouldEqual, 0)
				So(svc.GetStats(ctx).Processed, ShouldEqual, int64(cfg.Matches))
			})

			Convey("Then lookups agree with the leaderboard", func() {
				So(stats.LeaderboardEntries, ShouldBeGreaterThan, 0)
				So(stats.RatingsRetrieved, ShouldBeGreaterThanOrEqualTo, stats.LeaderboardEntries)
			})
		})

		Convey("When the service is unreachable", func() {
			cfg := testConfig("http://127.0.0.1:1")
			cfg.Timeout = 200 * time.Millisecond
			_, err := Run(ctx, cfg)

			Convey("Then the run fails fast", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/foosrank/internal/config"
	"github.com/okian/foosrank/internal/domain/rating"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.BaselineRating, convey.ShouldEqual, 1000)
			convey.So(cfg.SweepPolicy, convey.ShouldEqual, "winner_only")
			convey.So(cfg.TeamModel, convey.ShouldEqual, "advanced")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the rating section maps onto the engine defaults", func() {
			convey.So(cfg.RatingConfig(), convey.ShouldResemble, rating.DefaultConfig())
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = " " },
			"zero queue":           func(c *config.Config) { c.QueueSize = 0 },
			"negative workers":     func(c *config.Config) { c.WorkerCount = -1 },
			"zero dedupe":          func(c *config.Config) { c.DedupeSize = 0 },
			"zero history limit":   func(c *config.Config) { c.MaxHistoryLimit = 0 },
			"negative submit rate": func(c *config.Config) { c.SubmitRatePerSec = -1 },
			"zero submit burst":    func(c *config.Config) { c.SubmitBurst = 0 },
			"unknown log format":   func(c *config.Config) { c.LogFormat = "xml" },
			"unknown store":        func(c *config.Config) { c.Store = "redis" },
			"sqlite without path":  func(c *config.Config) { c.Store = config.StoreSQLite; c.SQLitePath = "" },
			"zero divisor":         func(c *config.Config) { c.SoloDivisor = 0 },
			"unknown sweep policy": func(c *config.Config) { c.SweepPolicy = "loser_only" },
			"unknown team model":   func(c *config.Config) { c.TeamModel = "glicko" },
		}

		for name, mutate := range cases {
			convey.Convey("When it has "+name, func() {
				cfg := config.New()
				mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					err := cfg.Validate()
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When enum values use mixed case", func() {
			cfg := config.New()
			cfg.SweepPolicy = "Both_Sides"
			cfg.TeamModel = "AVERAGE"

			convey.Convey("Then they are normalised", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				rc := cfg.RatingConfig()
				convey.So(rc.SweepPolicy, convey.ShouldEqual, rating.SweepBothSides)
				convey.So(rc.TeamModel, convey.ShouldEqual, rating.TeamModelAverage)
			})
		})
	})
}

package repository

import (
	"time"

	"github.com/okian/foosrank/internal/domain/rating"
)

type options struct {
	baseline              float64
	metricsUpdateInterval time.Duration
	now                   func() time.Time
}

func defaultOptions() options {
	return options{
		baseline:              rating.DefaultBaseline,
		metricsUpdateInterval: 5 * time.Second,
		now:                   time.Now,
	}
}

// Option configures a store.
type Option func(*options)

// WithBaseline sets the rating of participants with no standing.
func WithBaseline(b float64) Option {
	return func(o *options) { o.baseline = b }
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsUpdateInterval = interval
		}
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

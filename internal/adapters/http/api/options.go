package api

import (
	"golang.org/x/time/rate"

	"github.com/okian/foosrank/pkg/logger"
)

const (
	defaultLeaderboardLimit    = 10
	defaultMaxLeaderboardLimit = 100
	defaultHistoryLimit        = 20
	defaultMaxHistoryLimit     = 200
)

type options struct {
	maxLeaderboardLimit int
	maxHistoryLimit     int
	newID               func() string
	logger              logger.Logger
	limiter             *ClientRateLimiter
}

// Option configures the Server.
type Option func(*options)

// WithMaxLeaderboardLimit caps the limit accepted by GET /leaderboard.
func WithMaxLeaderboardLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLeaderboardLimit = n
		}
	}
}

// WithMaxHistoryLimit caps the limit accepted by GET /history.
func WithMaxHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHistoryLimit = n
		}
	}
}

// WithIDGenerator sets how match IDs are generated when a client omits one.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSubmitRateLimit limits match submissions to perSecond per client IP
// with bursts of burst. A non-positive rate leaves submissions unlimited.
func WithSubmitRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		if perSecond > 0 {
			o.limiter = NewClientRateLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

package worker

import (
	"time"

	"github.com/okian/foosrank/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithShutdownTimeout bounds how long Shutdown waits for workers to drain
// the queue.
func WithShutdownTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.shutdownTimeout = d
		}
	}
}

// WithMetricsInterval sets how often the pool publishes its gauges.
func WithMetricsInterval(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.metricsInterval = d
		}
	}
}

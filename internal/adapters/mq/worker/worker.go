// Package worker drains the match queue and hands each match to a Processor.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/foosrank/internal/domain/model"
	"github.com/okian/foosrank/pkg/logger"
	"github.com/okian/foosrank/pkg/metrics"
)

const (
	defaultMetricsInterval = 5 * time.Second
	defaultShutdownTimeout = 30 * time.Second
)

// Processor rates one match.
type Processor interface {
	Process(ctx context.Context, m model.Match) error
}

// Queue defines how workers receive matches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Match
}

// Worker processes queued matches.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	active    *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		active:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	matches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case m, ok := <-matches:
			if !ok {
				return
			}
			if err := w.process(ctx, m); err != nil {
				w.logger.Error(ctx, "error processing match",
					logger.String("match_id", m.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker and waits for the current match to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, m model.Match) error { //nolint:gocritic // hugeParam: Match is passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.processor.Process(ctx, m); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "process_error")
		return fmt.Errorf("process match %s: %w", m.ID, err)
	}
	return nil
}

// Pool manages multiple workers reading from one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64
	started atomic.Bool

	shutdownTimeout time.Duration
	metricsInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below 1 means one worker per CPU.
func NewPool(workerCount int, q Queue, p Processor, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		queue:           q,
		shutdownTimeout: defaultShutdownTimeout,
		metricsInterval: defaultMetricsInterval,
		stop:            make(chan struct{}),
		logger:          logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(pool)
	}

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, p, WithName("worker-"+strconv.Itoa(i)))
		w.active = &pool.active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Active returns the number of workers currently processing a match.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Start starts all workers in the pool. The workers outlive ctx: they keep
// draining the queue until Shutdown, so matches accepted before a signal
// are still rated. Values carried by ctx are kept.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
	go p.startMetricsUpdater(runCtx)
}

// halt cancels the context the workers run on.
func (p *Pool) halt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			metrics.UpdateWorkerCount(len(p.workers))
			metrics.UpdateWorkerActiveCount(p.Active())
		}
	}
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// busy after the shutdown timeout (or when ctx is done) are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stop) })

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}

	defer p.halt()

	drainCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var timedOut int
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			if err := w.Shutdown(ctx); err != nil {
				timedOut++
			}
		}
	}
	if timedOut > 0 {
		p.logger.Warn(ctx, "workers did not stop in time", logger.Int("count", timedOut))
		return fmt.Errorf("%d worker(s) did not stop: %w", timedOut, drainCtx.Err())
	}
	return nil
}

// Package queue buffers accepted matches between the HTTP intake and the
// worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/okian/foosrank/internal/domain/model"
	"github.com/okian/foosrank/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Match is the payload flowing through the queue.
type Match = model.Match

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a match to the queue.
	// Returns false if the queue is full or closed and the match was not enqueued.
	Enqueue(ctx context.Context, m Match) bool

	// Dequeue returns a channel that receives matches as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Match

	// Len returns the current number of queued matches.
	Len(ctx context.Context) int

	// Cap returns the configured capacity.
	Cap() int

	// Close stops intake. Matches already queued are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	matches  chan Match
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.matches = make(chan Match, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// Enqueue adds a match to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m Match) bool { //nolint:gocritic // hugeParam: Match is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.matches <- m:
		metrics.RecordQueueEnqueue()
		q.observeSize()
		return true
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel fed from the queue until it is closed and
// drained or ctx is done.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Match {
	out := make(chan Match)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-q.matches:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				q.observeSize()
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued matches.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.observeSize()
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

func (q *InMemoryQueue) observeSize() int {
	size := len(q.matches)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops intake; consumers drain what is left.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.matches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

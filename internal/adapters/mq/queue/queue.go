// Package queue defines the contract for enqueuing and consuming case
// snapshots awaiting review.
package queue

import (
	"context"
	"sync"

	"github.com/cprtrace/cprtrace/internal/domain/model"
	"github.com/cprtrace/cprtrace/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10000
)

// Case is the payload type flowing through the queue.
type Case = model.CaseSnapshot

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a case to the queue.
	// Returns false if the queue is full and the case was not enqueued.
	Enqueue(ctx context.Context, c Case) bool

	// Dequeue returns a channel that receives cases as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Case

	// Len returns the current number of queued cases.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new
	// cases can be enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	cases    chan Case
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates an in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.cases = make(chan Case, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a case to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Case) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueError("closed")
		return false
	}

	select {
	case q.cases <- c:
		metrics.RecordQueueEnqueue()
		q.publishSize()
		return true
	case <-ctx.Done():
		metrics.RecordQueueError("context_cancelled")
		return false
	default:
		metrics.RecordQueueError("queue_full")
		return false
	}
}

// Dequeue returns a channel that receives cases as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Case {
	out := make(chan Case)
	go func() {
		defer close(out)
		for c := range q.cases {
			select {
			case out <- c:
				metrics.RecordQueueDequeue()
				q.publishSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued cases.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.cases)
	q.publishSize()
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.cases)
	q.closed = true

	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) publishSize() {
	size := len(q.cases)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

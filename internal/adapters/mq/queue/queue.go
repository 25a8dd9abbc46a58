// Package queue provides a bounded, non-blocking in-memory queue.
//
// Enqueue never waits: a full or closed queue rejects the item and the
// caller decides what dropping means. The same queue type carries telemetry
// messages toward a socket writer and session jobs toward runner workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/neurolens/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultQueueName     = "default"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item to the queue.
	// Returns false if the queue is full or closed and the item was not enqueued.
	Enqueue(ctx context.Context, item T) bool

	// Dequeue returns a channel that will receive items as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len() int

	// Close gracefully shuts down the queue.
	// After closing, no new items can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	name     string
	mu       sync.RWMutex
	closed   bool
}

var _ Queue[int] = (*InMemoryQueue[int])(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	s := settings{
		capacity: defaultQueueCapacity,
		name:     defaultQueueName,
	}
	for _, opt := range opts {
		opt(&s)
	}

	q := &InMemoryQueue[T]{
		items:    make(chan T, s.capacity),
		capacity: s.capacity,
		name:     s.name,
	}
	metrics.UpdateQueueSize(q.name, 0)
	return q
}

// Enqueue adds an item to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop(q.name, "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueDrop(q.name, "context_cancelled")
		return false
	}

	select {
	case q.items <- item:
		metrics.UpdateQueueSize(q.name, len(q.items))
		return true
	default:
		metrics.RecordQueueDrop(q.name, "queue_full")
		return false
	}
}

// Dequeue returns the receive side of the queue. Items stay queued until a
// consumer takes them, so a consumer that stops never strands one. The
// channel is closed by Close; consumers watch ctx themselves.
func (q *InMemoryQueue[T]) Dequeue(_ context.Context) <-chan T {
	return q.items
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue[T]) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	metrics.UpdateQueueSize(q.name, 0)
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

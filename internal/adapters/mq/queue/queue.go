// Package queue provides the unbounded multi-producer multi-consumer queues
// that connect the pipeline stages.
//
// Enqueue never blocks. Consumers pull with DequeueBatch, which never blocks
// either; an empty batch means the consumer should wait on Ready or for its
// poll interval before trying again.
package queue

import (
	"context"
	"sync"

	"github.com/okian/fraudscope/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultInitialCapacity = 1024
	defaultName            = "ingestion"
)

// InMemoryQueue is an unbounded FIFO guarded by a mutex. Enqueue fails
// only once the queue is closed; DequeueBatch never blocks and hands each
// item to exactly one caller.
type InMemoryQueue[T any] struct {
	name            string
	initialCapacity int

	mu     sync.Mutex
	items  []T
	head   int
	closed bool
	ready  chan struct{}
}

// NewInMemoryQueue creates an unbounded queue.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{name: defaultName, initialCapacity: defaultInitialCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue[T]{
		name:            cfg.name,
		initialCapacity: cfg.initialCapacity,
		items:           make([]T, 0, cfg.initialCapacity),
		ready:           make(chan struct{}, 1),
	}
	metrics.UpdateQueueDepth(q.name, 0)
	return q
}

// Enqueue appends item to the tail of the queue.
func (q *InMemoryQueue[T]) Enqueue(_ context.Context, item T) bool { //nolint:gocritic // items are passed by value
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	depth := len(q.items) - q.head
	q.mu.Unlock()

	metrics.UpdateQueueDepth(q.name, depth)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// DequeueBatch removes up to max items from the head of the queue.
func (q *InMemoryQueue[T]) DequeueBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	q.mu.Lock()
	n := len(q.items) - q.head
	if n == 0 {
		q.mu.Unlock()
		return nil
	}
	if n > max {
		n = max
	}

	batch := make([]T, n)
	copy(batch, q.items[q.head:q.head+n])

	var zero T
	for i := q.head; i < q.head+n; i++ {
		q.items[i] = zero
	}
	q.head += n
	q.compact()
	depth := len(q.items) - q.head
	q.mu.Unlock()

	metrics.UpdateQueueDepth(q.name, depth)

	// Leave a wake-up behind for other consumers while work remains.
	if depth > 0 {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return batch
}

// compact reclaims the consumed prefix once it dominates the backing slice.
// Caller holds q.mu.
func (q *InMemoryQueue[T]) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		if cap(q.items) > 4*q.initialCapacity {
			q.items = make([]T, 0, q.initialCapacity)
		}
		return
	}
	if q.head > len(q.items)/2 && q.head > q.initialCapacity {
		remaining := copy(q.items, q.items[q.head:])
		var zero T
		for i := remaining; i < len(q.items); i++ {
			q.items[i] = zero
		}
		q.items = q.items[:remaining]
		q.head = 0
	}
}

// Ready returns the wake-up channel.
func (q *InMemoryQueue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close stops accepting new items.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// internal/queue/queue.go
package queue

import (
	"context"
	"fmt"
	"sync"
)

// Queue is a bounded FIFO hand-off with completion tracking, the only shared
// mutable state between the orchestrator, the workers, and the writer.
//
// Capacity bounds the number of *unacknowledged* items: an item counts
// against the bound from Put until TaskDone, whether it is still buffered or
// already retrieved. Put blocks while the bound is reached — this
// backpressure is what couples producer speed to the slowest consumer and
// caps memory. Every retrieved item is delivered to exactly one caller.
type Queue[T any] struct {
	items chan T
	sem   chan struct{}

	mu   sync.Mutex
	open int           // items put but not yet acknowledged
	idle chan struct{} // closed when open returns to zero
}

// New returns a queue with the given capacity bound.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: capacity must be positive (got %d)", capacity)
	}
	return &Queue[T]{
		items: make(chan T, capacity),
		sem:   make(chan struct{}, capacity),
	}, nil
}

// Put enqueues v, blocking while capacity unacknowledged items are
// outstanding. It returns early with the context error if ctx is done.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	select {
	case q.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	q.mu.Lock()
	q.open++
	q.mu.Unlock()
	// open <= cap(items) always holds, so this send cannot block.
	q.items <- v
	return nil
}

// Get retrieves the oldest item, blocking while the queue is empty.
// The item remains outstanding until TaskDone.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	select {
	case v := <-q.items:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TaskDone acknowledges one previously retrieved item, releasing its
// capacity slot. It panics if called more times than items were retrieved.
func (q *Queue[T]) TaskDone() {
	select {
	case <-q.sem:
	default:
		panic("queue: TaskDone called with no outstanding item")
	}
	q.mu.Lock()
	q.open--
	if q.open == 0 && q.idle != nil {
		close(q.idle)
		q.idle = nil
	}
	q.mu.Unlock()
}

// Join blocks until every item ever Put has been acknowledged. It is the
// orchestrator's drain barrier: once Join returns and no producers remain,
// consumers have fully processed the queue.
func (q *Queue[T]) Join(ctx context.Context) error {
	q.mu.Lock()
	if q.open == 0 {
		q.mu.Unlock()
		return nil
	}
	if q.idle == nil {
		q.idle = make(chan struct{})
	}
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outstanding reports the number of unacknowledged items.
func (q *Queue[T]) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.open
}

// SPDX-License-Identifier: MIT

package staging

import (
	"sync"
	"time"
)

// fifo is an unbounded thread-safe FIFO queue. Consumers poll with a short
// timeout so worker loops can interleave queue waits with cancellation and
// drain checks.
type fifo[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{wake: make(chan struct{}, 1)}
}

// Push appends item and wakes one waiting consumer.
func (q *fifo[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// PopWait removes and returns the head of the queue, waiting up to timeout
// for an item to arrive. The second return value is false on timeout.
func (q *fifo[T]) PopWait(timeout time.Duration) (T, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, false
		}
		select {
		case <-q.wake:
		case <-time.After(remaining):
		}
	}
}

// Len returns the number of queued items.
func (q *fifo[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue holds no items.
func (q *fifo[T]) Empty() bool {
	return q.Len() == 0
}

// Drain discards all queued items.
func (q *fifo[T]) Drain() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

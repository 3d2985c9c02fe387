// Package inbox is an unbounded FIFO with a single consumer. Push never
// blocks, so it is safe to call from hotkey hooks and audio callbacks.
package inbox

import "sync"

type Inbox[T any] struct {
	mu     sync.Mutex
	items  []T
	ready  chan struct{}
	closed bool
}

func New[T any]() *Inbox[T] {
	return &Inbox[T]{ready: make(chan struct{}, 1)}
}

// Push appends v. It reports false once the inbox is closed.
func (q *Inbox[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns everything queued, oldest first.
func (q *Inbox[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Ready is signaled after a Push. One signal may cover several items.
func (q *Inbox[T]) Ready() <-chan struct{} {
	return q.ready
}

func (q *Inbox[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Inbox[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

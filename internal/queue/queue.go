// Package queue buffers records between the simulation and slow writers.
package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO with batch draining. A positive threshold makes
// Push report when a batch is ready so writers can flush without polling.
type Queue[T any] struct {
	mu        sync.Mutex
	items     []T
	threshold int
}

// New creates an empty queue. threshold <= 0 disables batch signalling.
func New[T any](threshold int) *Queue[T] {
	if threshold < 0 {
		threshold = 0
	}
	return &Queue[T]{
		items:     make([]T, 0, threshold),
		threshold: threshold,
	}
}

// Push appends items and reports whether the queue reached its threshold.
func (q *Queue[T]) Push(items ...T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	return q.threshold > 0 && len(q.items) >= q.threshold
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns up to max items from the head of the queue in
// insertion order. max <= 0 drains everything.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || max >= len(q.items) {
		out := q.items
		q.items = make([]T, 0, cap(out))
		return out
	}
	out := make([]T, max)
	copy(out, q.items[:max])
	rest := make([]T, len(q.items)-max, cap(q.items))
	copy(rest, q.items[max:])
	q.items = rest
	return out
}

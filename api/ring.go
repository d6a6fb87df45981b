// Package api
//
// Bounded FIFO contract satisfied by every inter-component queue in the
// dataplane (spec.md §5: single-writer/single-reader, no blocking I/O).

package api

// Ring is the bounded-queue contract a component's goroutine loop uses to
// hand flits or metadata to its neighbour without sharing state directly.
type Ring[T any] interface {
    // Enqueue adds item, returns false if the queue is full.
    Enqueue(item T) bool

    // Dequeue removes and returns the oldest item, false if empty.
    Dequeue() (T, bool)

    // Len returns the number of items currently queued.
    Len() int

    // Cap returns the fixed queue capacity.
    Cap() int
}

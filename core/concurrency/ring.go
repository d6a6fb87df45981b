// Package concurrency provides a bounded lock-free FIFO (RingBuffer) and
// the worker pool (Executor) that runs the engine's direction loops.
// RingBuffer backs the Executor's per-worker task queues; the pipeline's
// traffic-class queues (arbiter.TCStream) are plain, unbounded slices and
// do not use it.
//
// License: Apache-2.0
//
// Adapted from the teacher's core/concurrency/ring.go (a Vyukov-style MPMC
// bounded ring with sequence-number cells, padded to avoid false sharing
// between head and tail).
package concurrency

import (
	"sync/atomic"

	"github.com/nica-dataplane/nicacore/api"
)

var _ api.Ring[any] = (*RingBuffer[any])(nil)

const cacheLinePad = 64

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// RingBuffer is a lock-free, power-of-two-sized bounded MPMC FIFO.
type RingBuffer[T any] struct {
	head uint64
	_    [cacheLinePad]byte
	tail uint64
	_    [cacheLinePad]byte
	mask  uint64
	cells []cell[T]
}

// NewRingBuffer allocates a ring rounded up to the next power of two, with a
// floor of 2 slots.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 2 {
		size = 2
	}
	n := 1
	for n < size {
		n <<= 1
	}
	r := &RingBuffer[T]{
		mask:  uint64(n - 1),
		cells: make([]cell[T], n),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// Enqueue adds item, returning false if the ring is full.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		c := &r.cells[tail&r.mask]
		seq := c.sequence.Load()
		switch diff := int64(seq) - int64(tail); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				c.data = item
				c.sequence.Store(tail + 1)
				return true
			}
		case diff < 0:
			return false
		}
	}
}

// Dequeue removes and returns the oldest item; ok is false if empty.
func (r *RingBuffer[T]) Dequeue() (T, bool) {
	for {
		head := atomic.LoadUint64(&r.head)
		c := &r.cells[head&r.mask]
		seq := c.sequence.Load()
		switch diff := int64(seq) - int64(head+1); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				item := c.data
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
		case diff < 0:
			var zero T
			return zero, false
		}
	}
}

// Len returns an approximate occupancy (exact under single-writer/single-reader use).
func (r *RingBuffer[T]) Len() int {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	return int(tail - head)
}

// Cap returns the fixed ring capacity (rounded-up power of two).
func (r *RingBuffer[T]) Cap() int {
	return len(r.cells)
}

// Full reports whether the ring currently rejects Enqueue.
func (r *RingBuffer[T]) Full() bool {
	return r.Len() >= len(r.cells)
}

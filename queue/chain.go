package queue

import (
	"sync/atomic"
)

// segment is one ring buffer in a chain, linked to its successor once the
// writer has abandoned it.
type segment[T any] struct {
	ring   *Ring[T]
	next   atomic.Pointer[segment[T]]
	closed atomic.Bool
}

// Chain is an unbounded single-producer/single-consumer queue built from
// bounded ring segments.
//
// When the writer exhausts the current segment it allocates a fresh one,
// links it after the tail and marks the old tail closed. The reader frees
// an exhausted closed segment and moves on, so no allocation on the writer
// side ever blocks the reader.
//
// Contract: exactly one writer goroutine and one reader goroutine.
type Chain[T any] struct {
	head   *segment[T] // reader side
	tail   *segment[T] // writer side
	segCap uint64
}

// DefaultSegmentCap is the segment capacity used when none is given.
const DefaultSegmentCap = 256

// NewChain creates a chain queue with the given segment capacity, which
// must be a power of two. Zero selects DefaultSegmentCap.
func NewChain[T any](segCap uint64) *Chain[T] {
	if segCap == 0 {
		segCap = DefaultSegmentCap
	}
	first := &segment[T]{ring: NewRing[T](segCap)}
	return &Chain[T]{
		head:   first,
		tail:   first,
		segCap: segCap,
	}
}

// Put appends a value. It never fails; a full tail segment is replaced
// with a newly allocated one.
func (q *Chain[T]) Put(v T) {
	if q.tail.ring.TryPut(v) {
		return
	}
	next := &segment[T]{ring: NewRing[T](q.segCap)}
	next.ring.Put(v)
	next.ring.FlushWriter()
	// Link before closing so a reader that observes the closed mark also
	// observes the successor.
	q.tail.next.Store(next)
	q.tail.closed.Store(true)
	q.tail = next
}

// Get removes the next value in FIFO order. It reports false when the
// queue is currently empty.
func (q *Chain[T]) Get() (T, bool) {
	for {
		head := q.head
		if v, ok := head.ring.TryGet(); ok {
			return v, true
		}
		if !head.closed.Load() {
			var zero T
			return zero, false
		}
		// The final flush of a closed segment happens before the closed
		// mark, so one more refresh drains any remainder.
		if v, ok := head.ring.TryGet(); ok {
			return v, true
		}
		q.head = head.next.Load()
	}
}

package queue

import (
	"sync/atomic"
)

const cacheLine = 64

// Ring is a fixed-capacity single-producer/single-consumer ring buffer.
//
// Each side works on a local cursor plus a cached copy of the other
// side's published cursor, so the hot path touches no shared memory.
// Publication is explicit: the writer calls FlushWriter after a batch of
// Put calls, the reader calls FlushReader after a batch of Get calls, and
// each side calls its Update method to refresh its view of the peer.
//
// Contract: exactly one writer goroutine and one reader goroutine.
// Put with no free slot in the writer's local view panics; callers must
// check FreeCount (after UpdateWriter) first. Get is the mirror.
type Ring[T any] struct {
	// Reader side: local cursor, cached writer cursor, published cursor.
	readPos     uint64
	cachedWrite uint64
	sharedRead  atomic.Uint64
	_           [cacheLine - 24]byte

	// Writer side: local cursor, cached reader cursor, published cursor.
	writePos    uint64
	cachedRead  uint64
	sharedWrite atomic.Uint64
	_           [cacheLine - 24]byte

	// Immutable after construction.
	buf  []T
	mask uint64
}

// NewRing creates a ring buffer. Capacity must be a power of two.
func NewRing[T any](capacity uint64) *Ring[T] {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		panic("queue: ring capacity must be a power of two")
	}
	return &Ring[T]{
		buf:  make([]T, capacity),
		mask: capacity - 1,
	}
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() uint64 {
	return uint64(len(r.buf))
}

// FreeCount returns the number of free slots in the writer's local view.
func (r *Ring[T]) FreeCount() uint64 {
	return uint64(len(r.buf)) - (r.writePos - r.cachedRead)
}

// UpdateWriter refreshes the writer's view of the reader cursor.
func (r *Ring[T]) UpdateWriter() {
	r.cachedRead = r.sharedRead.Load()
}

// Put stores a value in the next write slot. The writer's local view must
// show a free slot.
func (r *Ring[T]) Put(v T) {
	if r.FreeCount() == 0 {
		panic("queue: Put on full ring")
	}
	r.buf[r.writePos&r.mask] = v
	r.writePos++
}

// FlushWriter publishes all values written so far to the reader.
func (r *Ring[T]) FlushWriter() {
	r.sharedWrite.Store(r.writePos)
}

// TryPut is the unbatched write path: refresh, store and publish one value.
// It reports false when the ring is full.
func (r *Ring[T]) TryPut(v T) bool {
	if r.FreeCount() == 0 {
		r.UpdateWriter()
		if r.FreeCount() == 0 {
			return false
		}
	}
	r.buf[r.writePos&r.mask] = v
	r.writePos++
	r.sharedWrite.Store(r.writePos)
	return true
}

// AvailCount returns the number of readable values in the reader's local view.
func (r *Ring[T]) AvailCount() uint64 {
	return r.cachedWrite - r.readPos
}

// UpdateReader refreshes the reader's view of the writer cursor.
func (r *Ring[T]) UpdateReader() {
	r.cachedWrite = r.sharedWrite.Load()
}

// Get returns the next value. The reader's local view must show one.
func (r *Ring[T]) Get() T {
	if r.AvailCount() == 0 {
		panic("queue: Get on empty ring")
	}
	i := r.readPos & r.mask
	v := r.buf[i]
	var zero T
	r.buf[i] = zero
	r.readPos++
	return v
}

// FlushReader releases all slots read so far back to the writer.
func (r *Ring[T]) FlushReader() {
	r.sharedRead.Store(r.readPos)
}

// TryGet is the unbatched read path: refresh, read and release one value.
// It reports false when the ring is empty.
func (r *Ring[T]) TryGet() (T, bool) {
	if r.AvailCount() == 0 {
		r.UpdateReader()
		if r.AvailCount() == 0 {
			var zero T
			return zero, false
		}
	}
	v := r.Get()
	r.sharedRead.Store(r.readPos)
	return v, true
}

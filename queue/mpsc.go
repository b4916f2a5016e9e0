package queue

import (
	"sync"
	"time"
)

// Pollable is a multi-producer/single-consumer queue with a wait handle.
//
// Producers append to a mutex-guarded writer slice. The single reader
// swaps the writer slice for its private reader slice under the same lock,
// amortizing lock traffic to one acquisition per batch, and drains the
// batch without the lock. A reader that finds nothing marks itself
// waiting; the next WriterPut then releases the wait handle.
//
// WaitChan exposes the handle directly so a scheduler can select over it
// together with its timeout timer. Spurious wakeups are possible and
// harmless: every consumer path re-checks with ReaderWaitNonblock.
type Pollable[T any] struct {
	mu      sync.Mutex
	writer  []T
	waiting bool

	signal chan struct{}

	// Reader-owned; never touched by producers.
	reader []T
	pos    int
}

// NewPollable creates an empty pollable queue.
func NewPollable[T any]() *Pollable[T] {
	return &Pollable[T]{
		signal: make(chan struct{}, 1),
	}
}

// WriterPut appends a value. Safe to call from any goroutine.
func (q *Pollable[T]) WriterPut(v T) {
	q.mu.Lock()
	q.writer = append(q.writer, v)
	wake := q.waiting
	q.waiting = false
	q.mu.Unlock()

	if wake {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
}

// ReaderWaitNonblock returns the number of values ready for the reader,
// swapping in a fresh batch if the current one is drained. When it
// returns zero the reader is registered as waiting and the next WriterPut
// will release the wait handle. Reader-only.
func (q *Pollable[T]) ReaderWaitNonblock() int {
	if n := len(q.reader) - q.pos; n > 0 {
		return n
	}
	q.reader = q.reader[:0]
	q.pos = 0

	q.mu.Lock()
	q.reader, q.writer = q.writer, q.reader
	if len(q.reader) == 0 {
		q.waiting = true
	}
	q.mu.Unlock()

	return len(q.reader)
}

// ReaderGetUnsafe returns the next value of the current batch. Must only
// be called after ReaderWaitNonblock reported it available. Reader-only.
func (q *Pollable[T]) ReaderGetUnsafe() T {
	v := q.reader[q.pos]
	var zero T
	q.reader[q.pos] = zero
	q.pos++
	return v
}

// ReaderFlush releases the storage of a fully drained batch. Reader-only.
func (q *Pollable[T]) ReaderFlush() {
	if q.pos == len(q.reader) {
		q.reader = q.reader[:0]
		q.pos = 0
	}
}

// WaitChan returns the wait handle. A receive may be spurious; callers
// must re-check ReaderWaitNonblock.
func (q *Pollable[T]) WaitChan() <-chan struct{} {
	return q.signal
}

// ReaderWait blocks until at least one value is available or the timeout
// expires, returning the number of values ready. It spins briefly via
// Backoff before falling back to the wait handle. Reader-only.
func (q *Pollable[T]) ReaderWait(timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	for b := NewBackoff(); ; {
		if n := q.ReaderWaitNonblock(); n > 0 {
			return n
		}
		if !b.Next() || !time.Now().Before(deadline) {
			break
		}
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	for {
		if n := q.ReaderWaitNonblock(); n > 0 {
			return n
		}
		select {
		case <-q.signal:
		case <-timer.C:
			return q.ReaderWaitNonblock()
		}
	}
}

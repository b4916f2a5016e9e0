package queue

import (
	"runtime"
	"time"
)

// Backoff defaults. These are tuning parameters, not semantics; callers
// with different latency profiles pass their own via NewBackoffWithStrategy.
const (
	DefaultSpinLimit     = 50
	DefaultMaxAttempts   = 500
	DefaultSleepInterval = time.Millisecond
)

// Backoff is a spin-then-sleep wait strategy.
//
// The first spinLimit calls to Next only yield the processor; after that
// each call sleeps for a short fixed interval. A bounded
// Backoff reports false once the attempt cap is reached, at which point
// the caller is expected to fall back to a blocking primitive such as the
// Pollable wait handle.
type Backoff struct {
	attempts    int
	spinLimit   int
	maxAttempts int // 0 means unbounded
	sleep       time.Duration
}

// NewBackoff returns the bounded default strategy.
func NewBackoff() *Backoff {
	return NewBackoffWithStrategy(DefaultSpinLimit, DefaultMaxAttempts, DefaultSleepInterval)
}

// NewUnboundedBackoff returns a strategy that never gives up. Intended
// for scheduler threads that have no OS wait handle to fall back to.
func NewUnboundedBackoff() *Backoff {
	return NewBackoffWithStrategy(DefaultSpinLimit, 0, DefaultSleepInterval)
}

// NewBackoffWithStrategy returns a strategy with explicit thresholds.
// maxAttempts of zero means unbounded; sleep of zero disables the sleep
// phase (every attempt is a spin).
func NewBackoffWithStrategy(spinLimit, maxAttempts int, sleep time.Duration) *Backoff {
	return &Backoff{
		spinLimit:   spinLimit,
		maxAttempts: maxAttempts,
		sleep:       sleep,
	}
}

// Next records one wait attempt. It returns false when a bounded strategy
// is exhausted; otherwise it returns true, sleeping first if the spin
// phase is over.
func (b *Backoff) Next() bool {
	if b.maxAttempts > 0 && b.attempts >= b.maxAttempts {
		return false
	}
	b.attempts++
	if b.attempts > b.spinLimit && b.sleep > 0 {
		time.Sleep(b.sleep)
	} else {
		runtime.Gosched()
	}
	return true
}

// Attempts returns the number of attempts since the last Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// Reset restarts the strategy from the spin phase.
func (b *Backoff) Reset() {
	b.attempts = 0
}

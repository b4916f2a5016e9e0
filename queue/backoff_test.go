package queue

import (
	"testing"
	"time"
)

// TestBackoffBounded tests that a bounded strategy gives up at its cap
func TestBackoffBounded(t *testing.T) {
	b := NewBackoffWithStrategy(2, 5, 0)

	for i := 0; i < 5; i++ {
		if !b.Next() {
			t.Fatalf("Expected attempt %d to proceed", i)
		}
	}
	if b.Next() {
		t.Fatal("Expected exhausted strategy to report false")
	}
	if b.Attempts() != 5 {
		t.Errorf("Expected 5 attempts, got %d", b.Attempts())
	}
}

// TestBackoffUnbounded tests that an unbounded strategy never gives up
func TestBackoffUnbounded(t *testing.T) {
	b := NewBackoffWithStrategy(10, 0, 0)
	for i := 0; i < 10000; i++ {
		if !b.Next() {
			t.Fatalf("Unbounded strategy gave up at attempt %d", i)
		}
	}
}

// TestBackoffSpinPhase tests that spin attempts do not sleep
func TestBackoffSpinPhase(t *testing.T) {
	b := NewBackoffWithStrategy(100, 100, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 100; i++ {
		b.Next()
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("Spin phase took %v, expected no sleeping", elapsed)
	}
}

// TestBackoffSleepPhase tests that attempts past the spin limit sleep
func TestBackoffSleepPhase(t *testing.T) {
	b := NewBackoffWithStrategy(1, 10, 5*time.Millisecond)

	b.Next() // spin
	start := time.Now()
	b.Next() // sleep
	if elapsed := time.Since(start); elapsed < 4*time.Millisecond {
		t.Errorf("Sleep attempt returned after %v, expected at least 5ms", elapsed)
	}
}

// TestBackoffReset tests restarting from the spin phase
func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithStrategy(1, 3, 0)
	for b.Next() {
	}
	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("Expected 0 attempts after reset, got %d", b.Attempts())
	}
	if !b.Next() {
		t.Fatal("Expected reset strategy to proceed")
	}
}

// TestBackoffDefaults tests the default constructors
func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff()
	for i := 0; i < DefaultSpinLimit; i++ {
		if !b.Next() {
			t.Fatalf("Default strategy gave up during spin phase at %d", i)
		}
	}

	u := NewUnboundedBackoff()
	if u.maxAttempts != 0 {
		t.Errorf("Expected unbounded strategy, got cap %d", u.maxAttempts)
	}
}

package core

import (
	"testing"
	"time"
)

func newTestInfo(name string) *ActorInfo {
	return &ActorInfo{name: name, heapIndex: -1}
}

// TestTimeoutHeapOrder tests that expiry follows deadline order
func TestTimeoutHeapOrder(t *testing.T) {
	var h timeoutHeap
	now := time.Now()

	a := newTestInfo("a")
	b := newTestInfo("b")
	c := newTestInfo("c")
	h.set(a, now.Add(30*time.Millisecond))
	h.set(b, now.Add(10*time.Millisecond))
	h.set(c, now.Add(20*time.Millisecond))

	late := now.Add(time.Second)
	want := []*ActorInfo{b, c, a}
	for i, expect := range want {
		got := h.popExpired(late)
		if got != expect {
			t.Fatalf("Pop %d: expected %s, got %v", i, expect.name, got)
		}
		if got.heapIndex != -1 {
			t.Errorf("Popped %s still has heap index %d", got.name, got.heapIndex)
		}
	}
	if h.popExpired(late) != nil {
		t.Fatal("Expected empty heap")
	}
}

// TestTimeoutHeapNotExpired tests that future deadlines stay queued
func TestTimeoutHeapNotExpired(t *testing.T) {
	var h timeoutHeap
	now := time.Now()

	a := newTestInfo("a")
	h.set(a, now.Add(time.Hour))

	if got := h.popExpired(now); got != nil {
		t.Fatalf("Expected nil for future deadline, got %s", got.name)
	}
	if h.empty() {
		t.Fatal("Heap should still hold the entry")
	}
	if h.top() != a {
		t.Fatal("Expected a at the top")
	}
}

// TestTimeoutHeapRearm tests moving an armed deadline
func TestTimeoutHeapRearm(t *testing.T) {
	var h timeoutHeap
	now := time.Now()

	a := newTestInfo("a")
	b := newTestInfo("b")
	h.set(a, now.Add(10*time.Millisecond))
	h.set(b, now.Add(20*time.Millisecond))

	// Push a past b
	h.set(a, now.Add(30*time.Millisecond))

	late := now.Add(time.Second)
	if got := h.popExpired(late); got != b {
		t.Fatalf("Expected b first after rearm, got %s", got.name)
	}
	if got := h.popExpired(late); got != a {
		t.Fatalf("Expected a second, got %v", got)
	}
}

// TestTimeoutHeapCancel tests removal of an armed timeout
func TestTimeoutHeapCancel(t *testing.T) {
	var h timeoutHeap
	now := time.Now()

	a := newTestInfo("a")
	b := newTestInfo("b")
	h.set(a, now.Add(10*time.Millisecond))
	h.set(b, now.Add(20*time.Millisecond))

	h.cancel(a)
	if a.heapIndex != -1 {
		t.Errorf("Cancelled entry has heap index %d", a.heapIndex)
	}
	// Cancelling again is a no-op
	h.cancel(a)

	late := now.Add(time.Second)
	if got := h.popExpired(late); got != b {
		t.Fatalf("Expected b, got %v", got)
	}
	if h.popExpired(late) != nil {
		t.Fatal("Expected empty heap")
	}
}

// TestTimeoutHeapTieBreak tests that equal deadlines expire in arming order
func TestTimeoutHeapTieBreak(t *testing.T) {
	var h timeoutHeap
	at := time.Now().Add(10 * time.Millisecond)

	infos := make([]*ActorInfo, 10)
	for i := range infos {
		infos[i] = newTestInfo("x")
		h.set(infos[i], at)
	}

	late := at.Add(time.Second)
	for i := range infos {
		if got := h.popExpired(late); got != infos[i] {
			t.Fatalf("Pop %d: tie broken out of arming order", i)
		}
	}
}

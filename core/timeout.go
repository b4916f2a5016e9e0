package core

import (
	"container/heap"
	"time"
)

// timeoutHeap is a min-heap of actors keyed by absolute deadline, with
// ties broken by arming order. Each ActorInfo stores its own heap index
// so cancellation is O(log n). Mutated only by the owning scheduler.
type timeoutHeap struct {
	entries []*ActorInfo
	seq     uint64
}

func (h *timeoutHeap) Len() int { return len(h.entries) }

func (h *timeoutHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.deadline.Equal(b.deadline) {
		return a.heapSeq < b.heapSeq
	}
	return a.deadline.Before(b.deadline)
}

func (h *timeoutHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.entries[i].heapIndex = i
	h.entries[j].heapIndex = j
}

func (h *timeoutHeap) Push(x any) {
	info := x.(*ActorInfo)
	info.heapIndex = len(h.entries)
	h.entries = append(h.entries, info)
}

func (h *timeoutHeap) Pop() any {
	n := len(h.entries)
	info := h.entries[n-1]
	h.entries[n-1] = nil
	h.entries = h.entries[:n-1]
	info.heapIndex = -1
	return info
}

// empty reports whether no timeout is armed.
func (h *timeoutHeap) empty() bool {
	return len(h.entries) == 0
}

// top returns the actor with the nearest deadline.
func (h *timeoutHeap) top() *ActorInfo {
	return h.entries[0]
}

// set arms or re-keys the actor's timeout at the given deadline.
func (h *timeoutHeap) set(info *ActorInfo, at time.Time) {
	info.deadline = at
	if info.heapIndex >= 0 {
		heap.Fix(h, info.heapIndex)
		return
	}
	h.seq++
	info.heapSeq = h.seq
	heap.Push(h, info)
}

// cancel removes the actor's timeout if one is armed.
func (h *timeoutHeap) cancel(info *ActorInfo) {
	if info.heapIndex >= 0 {
		heap.Remove(h, info.heapIndex)
	}
}

// popExpired removes and returns the nearest-deadline actor if its
// deadline is at or before now, else nil.
func (h *timeoutHeap) popExpired(now time.Time) *ActorInfo {
	if h.empty() || h.top().deadline.After(now) {
		return nil
	}
	return heap.Pop(h).(*ActorInfo)
}

package clock

import (
	"container/heap"
	"time"
)

type fakeTimer struct {
	clock *Fake
	when  time.Time
	seq   uint64
	f     func()

	// position in the heap, -1 once removed
	index int
	done  bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.index >= 0 {
		t.clock.timers.remove(t.index)
	}
	return true
}

// timerHeap implements heap.Interface ordered by due time, then by
// scheduling order.
type timerHeap []*fakeTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*fakeTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.index = -1
	*h = old[0 : n-1]
	return x
}

func (h *timerHeap) remove(i int) {
	heap.Remove(h, i)
}

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Timers fire synchronously inside
// Advance, in due-time order, on the calling goroutine.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers timerHeap
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d < 0 {
		d = 0
	}
	t := &fakeTimer{
		clock: f,
		when:  f.now.Add(d),
		seq:   f.seq,
		f:     fn,
	}
	f.seq++
	heap.Push(&f.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due
// on the way, including timers scheduled by the callbacks themselves.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		if len(f.timers) == 0 || f.timers[0].when.After(target) {
			f.now = target
			f.mu.Unlock()
			return
		}
		t := heap.Pop(&f.timers).(*fakeTimer)
		t.done = true
		if t.when.After(f.now) {
			f.now = t.when
		}
		fn := t.f
		f.mu.Unlock()

		fn()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

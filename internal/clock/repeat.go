package clock

import (
	"sync"
	"time"
)

type repeating struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	f        func()
	current  Timer
	stopped  bool
}

func (r *repeating) arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.current = r.clock.AfterFunc(r.interval, r.fire)
}

func (r *repeating) fire() {
	r.arm()

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return
	}
	r.f()
}

func (r *repeating) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.stopped = true
	if r.current != nil {
		r.current.Stop()
	}
	return true
}

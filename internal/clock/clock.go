// Package clock abstracts the timers the dispatch flow depends on, so that
// the poller can be driven by a fake clock in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer cancels it.
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Every calls f each interval until the returned Timer is stopped.
// Scheduling is fixed-rate: the next call is armed before f runs, so a slow
// f does not delay later calls.
func Every(c Clock, interval time.Duration, f func()) Timer {
	r := &repeating{clock: c, interval: interval, f: f}
	r.arm()
	return r
}

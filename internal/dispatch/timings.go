package dispatch

import (
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
)

// Timings are the intervals and delays of a call session.
type Timings struct {
	PollInterval  time.Duration
	TickInterval  time.Duration
	CallTimeout   time.Duration
	AcceptedDelay time.Duration
	CloseDelay    time.Duration
	DismissDelay  time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		PollInterval:  2 * time.Second,
		TickInterval:  time.Second,
		CallTimeout:   120 * time.Second,
		AcceptedDelay: 1500 * time.Millisecond,
		CloseDelay:    500 * time.Millisecond,
		DismissDelay:  2 * time.Second,
	}
}

// TimingsFromConfig takes the configured timings, keeping the default for
// any that are not positive.
func TimingsFromConfig(cfg models.DispatchConfig) Timings {
	t := DefaultTimings()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&t.PollInterval, cfg.PollInterval)
	set(&t.TickInterval, cfg.TickInterval)
	set(&t.CallTimeout, cfg.CallTimeout)
	set(&t.AcceptedDelay, cfg.AcceptedDelay)
	set(&t.CloseDelay, cfg.CloseDelay)
	set(&t.DismissDelay, cfg.DismissDelay)
	return t
}

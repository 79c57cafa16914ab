package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollBudget is returned when a Poller gives up before the condition
// was met.
var ErrPollBudget = errors.New("poll budget exhausted")

// Poller repeats a check with growing pauses until it reports done.
type Poller struct {
	// Interval is the pause after the first check (default 2s).
	Interval time.Duration
	// MaxInterval caps the pause (default 30s).
	MaxInterval time.Duration
	// Multiplier grows the pause after each check (default 1.5).
	Multiplier float64
	// MaxPolls bounds the number of checks; 0 means until ctx is done.
	MaxPolls int
	// Jitter adds ±25% randomisation.
	Jitter bool
}

// DefaultPoller returns the cadence used for job status polling.
func DefaultPoller() *Poller {
	return &Poller{
		Interval:    2 * time.Second,
		MaxInterval: 30 * time.Second,
		Multiplier:  1.5,
		Jitter:      true,
	}
}

// Until calls check (poll is 1-based) until it returns done or an
// error.  Errors from check are returned as-is.
func (p *Poller) Until(ctx context.Context, check func(poll int) (done bool, err error)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxInterval := p.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 30 * time.Second
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1.5
	}
	s := newSchedule(interval, maxInterval, mult, p.Jitter)

	for poll := 1; ; poll++ {
		done, err := check(poll)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if p.MaxPolls > 0 && poll >= p.MaxPolls {
			return fmt.Errorf("%w after %d polls", ErrPollBudget, poll)
		}
		if err := sleep(ctx, s.wait()); err != nil {
			return fmt.Errorf("polling cancelled: %w", err)
		}
	}
}

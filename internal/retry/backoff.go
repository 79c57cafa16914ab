// Package retry paces the caller-side loops around the job client:
// polling a job until it settles and re-trying a status request after
// a transient transport failure.  The job client itself never retries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError stops a Backoff: remote rejections and anything else
// a second attempt cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	_, ok := unwrapPermanent(err)
	return ok
}

func unwrapPermanent(err error) (error, bool) {
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.Err, true
	}
	return err, false
}

// ── Schedule ─────────────────────────────────────────────────────────

// schedule yields exponentially growing waits, capped at max.
type schedule struct {
	next   time.Duration
	max    time.Duration
	mult   float64
	jitter bool
}

func newSchedule(initial, max time.Duration, mult float64, jitter bool) *schedule {
	if initial <= 0 {
		initial = time.Second
	}
	if max <= 0 {
		max = 60 * time.Second
	}
	if mult < 1 {
		mult = 2.0
	}
	return &schedule{next: initial, max: max, mult: mult, jitter: jitter}
}

// wait returns the current delay and advances the schedule.
func (s *schedule) wait() time.Duration {
	d := s.next
	if d > s.max {
		d = s.max
	}
	s.next = time.Duration(float64(s.next) * s.mult)
	if s.next > s.max {
		s.next = s.max
	}
	if s.jitter {
		return addJitter(d)
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Millisecond)))
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff re-runs a failing operation with exponential delays.
type Backoff struct {
	// InitialDelay is the delay before the first retry (default 1s).
	InitialDelay time.Duration
	// MaxDelay caps the backoff duration (default 60s).
	MaxDelay time.Duration
	// Multiplier increases the delay each attempt (default 2.0).
	Multiplier float64
	// MaxAttempts is the total number of tries including the first.
	// 0 means unlimited (until the context is cancelled).
	MaxAttempts int
	// Jitter adds ±25% randomisation.
	Jitter bool
}

// DefaultBackoff retries transient status failures a few times.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  4,
		Jitter:       true,
	}
}

// Do executes fn until it succeeds, returns a permanent error, or the
// attempt budget or context runs out.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	s := newSchedule(b.InitialDelay, b.MaxDelay, b.Multiplier, b.Jitter)

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if cause, ok := unwrapPermanent(err); ok {
			return cause
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}
		if err := sleep(ctx, s.wait()); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bqerr "bulkq/internal/errors"
)

func quickBackoff(attempts int) *Backoff {
	return &Backoff{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2, MaxAttempts: attempts}
}

// A status request that hits two connection resets and then succeeds.
func TestBackoff_RecoversFromTransientFailures(t *testing.T) {
	reset := bqerr.WrapTransport("get", "https://acme.example.com/jobs/query/750", syscall.ECONNRESET)
	calls := 0

	err := quickBackoff(5).Do(context.Background(), func(attempt int) error {
		calls++
		if attempt <= 2 {
			return reset
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_FirstTrySucceeds(t *testing.T) {
	calls := 0
	require.NoError(t, DefaultBackoff().Do(context.Background(), func(int) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestBackoff_PermanentStopsAtOnce(t *testing.T) {
	remote := &bqerr.ProtocolError{Kind: bqerr.UnknownRemote, Code: "INVALID_SESSION_ID", Status: 401}
	calls := 0

	err := DefaultBackoff().Do(context.Background(), func(int) error {
		calls++
		return fmt.Errorf("status: %w", Permanent(remote))
	})

	assert.Same(t, remote, err, "the cause is returned unwrapped")
	assert.Equal(t, 1, calls)
}

func TestBackoff_GivesUp(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0

	err := quickBackoff(3).Do(context.Background(), func(int) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestBackoff_ContextCancelled(t *testing.T) {
	b := &Backoff{InitialDelay: 5 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Do(ctx, func(int) error { return errors.New("timeout") })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"marked", Permanent(errors.New("x")), true},
		{"wrapped", fmt.Errorf("poll 3: %w", Permanent(errors.New("x"))), true},
		{"plain", errors.New("x"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}

func TestAddJitter_StaysWithinAQuarter(t *testing.T) {
	d := 2 * time.Second
	lo, hi := time.Duration(float64(d)*0.75), time.Duration(float64(d)*1.25)
	for i := 0; i < 200; i++ {
		j := addJitter(d)
		assert.True(t, j >= lo && j <= hi, "jitter %v outside [%v, %v]", j, lo, hi)
	}
}

func TestSchedule(t *testing.T) {
	s := newSchedule(2*time.Second, 5*time.Second, 1.5, false)
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, s.wait())
	}
	assert.Equal(t, []time.Duration{
		2 * time.Second, 3 * time.Second, 4500 * time.Millisecond, 5 * time.Second, 5 * time.Second,
	}, got)

	s = newSchedule(0, 0, 0, false)
	assert.Equal(t, time.Second, s.wait())
	assert.Equal(t, 2*time.Second, s.wait())
}

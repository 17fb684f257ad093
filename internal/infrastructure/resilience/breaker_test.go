package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("failed")

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(c *clock, maxRequests uint32, trips uint32) *Breaker {
	return New("test", Settings{
		MaxRequests: maxRequests,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		Now: c.now,
	})
}

func run(b *Breaker, success bool) error {
	_, err := Do(b, func() (string, error) {
		if success {
			return "ok", nil
		}
		return "", errFailed
	})
	return err
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		requests []bool // true = success, false = failure
		want     State
	}{
		{"stays closed on successes", []bool{true, true, true}, StateClosed},
		{"opens after consecutive failures", []bool{false, false, false}, StateOpen},
		{"success resets the streak", []bool{false, false, true, false, false}, StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBreaker(&clock{t: time.Unix(0, 0)}, 1, 3)
			for _, success := range tt.requests {
				_ = run(b, success)
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	b := newTestBreaker(&clock{t: time.Unix(0, 0)}, 1, 3)

	require.NoError(t, run(b, true))
	counts := b.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)

	assert.ErrorIs(t, run(b, false), errFailed)
	counts = b.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerIntervalClearsCounts(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	b := newTestBreaker(c, 1, 3)

	_ = run(b, false)
	_ = run(b, false)
	c.advance(2 * time.Minute)
	_ = run(b, false)

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().ConsecutiveFailures)
}

func TestBreakerOpenRejects(t *testing.T) {
	b := newTestBreaker(&clock{t: time.Unix(0, 0)}, 1, 2)
	_ = run(b, false)
	_ = run(b, false)

	called := false
	_, err := Do(b, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpen(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	b := newTestBreaker(c, 2, 2)
	_ = run(b, false)
	_ = run(b, false)
	require.Equal(t, StateOpen, b.State())

	c.advance(11 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	done1, err := b.Allow()
	require.NoError(t, err)
	done2, err := b.Allow()
	require.NoError(t, err)
	_, err = b.Allow()
	assert.ErrorIs(t, err, ErrTooManyRequests)

	done1(true)
	done2(true)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	b := newTestBreaker(c, 1, 1)
	_ = run(b, false)
	c.advance(11 * time.Second)

	assert.ErrorIs(t, run(b, false), errFailed)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerStaleOutcomeIgnored(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	b := newTestBreaker(c, 1, 1)

	done, err := b.Allow()
	require.NoError(t, err)
	_ = run(b, false) // opens the breaker, new generation

	done(true)
	done(true)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b := newTestBreaker(&clock{t: time.Unix(0, 0)}, 1, 1)

	assert.Panics(t, func() {
		_, _ = b.Execute(func() (interface{}, error) { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerCallbacks(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	var transitions []string

	b := New("spawn", Settings{
		Timeout:     time.Second,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
		Now: c.now,
	})

	_ = run(b, false)
	_ = run(b, false)
	c.advance(2 * time.Second)
	_ = run(b, true)

	assert.Equal(t, []string{
		"spawn:closed->open",
		"spawn:open->half-open",
		"spawn:half-open->closed",
	}, transitions)
}

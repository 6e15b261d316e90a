package errors

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemote = errors.New("remote failure")

type breakerClock struct{ t time.Time }

func (c *breakerClock) Now() time.Time {
	return c.t
}

func newTestBreaker(settings BreakerSettings) (*CircuitBreaker, *breakerClock, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	clk := &breakerClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(settings, log)
	cb.now = clk.Now
	return cb, clk, &buf
}

func failRemote() error {
	return errRemote
}

func succeed() error {
	return nil
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb, _, logs := newTestBreaker(DefaultBreakerSettings("arbor"))

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, cb.Call(failRemote), errRemote)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "name=arbor from=closed to=open")

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	cb, _, _ := newTestBreaker(DefaultBreakerSettings("arbor"))

	for i := 0; i < 10; i++ {
		fail := i%3 == 0
		_ = cb.Call(func() error {
			if fail {
				return errRemote
			}
			return nil
		})
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb, clk, logs := newTestBreaker(BreakerSettings{Name: "arbor", MinRequests: 2, HalfOpenRequests: 2})

	for i := 0; i < 2; i++ {
		_ = cb.Call(failRemote)
	}
	require.Equal(t, StateOpen, cb.State())

	clk.t = clk.t.Add(29 * time.Second)
	assert.ErrorIs(t, cb.Call(succeed), ErrCircuitOpen)

	clk.t = clk.t.Add(time.Second)
	require.NoError(t, cb.Call(succeed))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(succeed))

	assert.Equal(t, StateClosed, cb.State())
	assert.Contains(t, logs.String(), "from=half_open to=closed")
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clk, _ := newTestBreaker(BreakerSettings{Name: "arbor", MinRequests: 2})

	for i := 0; i < 2; i++ {
		_ = cb.Call(failRemote)
	}

	clk.t = clk.t.Add(time.Minute)

	assert.ErrorIs(t, cb.Call(failRemote), errRemote)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenLimitsConcurrentTrials(t *testing.T) {
	cb, clk, _ := newTestBreaker(BreakerSettings{Name: "arbor", MinRequests: 1, HalfOpenRequests: 1})

	_ = cb.Call(failRemote)
	clk.t = clk.t.Add(time.Minute)

	err := cb.Call(func() error {
		assert.ErrorIs(t, cb.Call(succeed), errHalfOpenTooManyRequests)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_IgnoresErrorsThatAreNotFailures(t *testing.T) {
	settings := BreakerSettings{
		Name:        "arbor",
		MinRequests: 2,
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	}
	cb, _, _ := newTestBreaker(settings)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return context.Canceled }), context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Call(failRemote)
	_ = cb.Call(failRemote)
	assert.Equal(t, StateOpen, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

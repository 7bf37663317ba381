package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errUpstream = errors.New("upstream down")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	var transitions []State
	cb := NewCircuitBreaker("chat", Config{
		FailureThreshold: 2,
		Timeout:          time.Hour,
		OnStateChange: func(_ string, _ State, to State) {
			transitions = append(transitions, to)
		},
	})
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, func() error { return errUpstream }), errUpstream)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, func() error { return errUpstream }), errUpstream)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []State{StateOpen}, transitions)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("chat", Config{
		MaxRequests:      2,
		FailureThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errUpstream })
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "chat", cb.Name())
}

func TestBreakerSkipsCancelledContext(t *testing.T) {
	cb := NewCircuitBreaker("chat", Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cb.Counts().Requests)
}

func TestCancelledCallDoesNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("chat", Config{FailureThreshold: 1, Timeout: time.Hour})

	err := cb.Execute(context.Background(), func() error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var (
	ErrCircuitOpen     = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

type (
	State  = gobreaker.State
	Counts = gobreaker.Counts
)

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Config tunes a breaker. A half-open breaker lets MaxRequests calls through
// and closes again once that many succeed in a row.
type Config struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	OnStateChange    func(name string, from State, to State)
	Logger           *zap.Logger
}

// CircuitBreaker guards calls to one upstream. Context cancellation by the
// caller is not counted as an upstream failure.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func (b *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (b *CircuitBreaker) Name() string {
	return b.cb.Name()
}

func (b *CircuitBreaker) State() State {
	return b.cb.State()
}

func (b *CircuitBreaker) Counts() Counts {
	return b.cb.Counts()
}

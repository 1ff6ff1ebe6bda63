package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/emrecanisildak/diet/internal/config"
	"github.com/emrecanisildak/diet/internal/domain"
)

// BreakerGateway stops calling the provider after consecutive transport
// failures, failing fast until the breaker's timeout elapses. Per-device
// rejections and caller cancellations do not count as failures.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerGateway(next Gateway, cfg config.BreakerConfig, logger zerolog.Logger) *BreakerGateway {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "apns",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var rejected *RejectedError
			return err == nil || errors.As(err, &rejected) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("push circuit breaker state changed")
		},
	})

	return &BreakerGateway{next: next, cb: cb}
}

func (g *BreakerGateway) SendPush(ctx context.Context, token, title, body string) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.next.SendPush(ctx, token, title, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryDegraded, err)
	}
	return err
}

// State reports the breaker state, for health output.
func (g *BreakerGateway) State() string {
	return g.cb.State().String()
}

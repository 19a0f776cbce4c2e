package messaging

import (
	"context"

	"github.com/sony/gobreaker/v2"
	"github.com/vendhub/marketplace/pkg/config"
)

// BreakerPublisher wraps a Publisher in a circuit breaker so a down broker
// sheds publish attempts quickly instead of stalling every request.
type BreakerPublisher struct {
	inner Publisher
	cb    *gobreaker.CircuitBreaker[any]
}

func NewBreakerPublisher(inner Publisher, cfg config.BreakerConfig) *BreakerPublisher {
	st := gobreaker.Settings{
		Name:        "event-publisher-cb",
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures
		},
	}
	return &BreakerPublisher{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](st),
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.cb.Execute(func() (any, error) {
		return nil, p.inner.Publish(ctx, event)
	})
	return err
}

// NoopPublisher discards events. Used when eventing is disabled and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ Event) error { return nil }

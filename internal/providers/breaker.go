package providers

import (
	"context"
	"errors"
	"time"

	cb "github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings controls the per-provider circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker once reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type breakerProvider struct {
	Provider
	cb *cb.CircuitBreaker
}

// WithBreaker wraps p so that repeated transport failures short-circuit
// further calls for a while. Config and parse errors never trip the breaker.
// While open, Search returns a transport error without touching the network.
func WithBreaker(p Provider, s BreakerSettings, log *zap.Logger) Provider {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	threshold := s.ConsecutiveFailures
	settings := cb.Settings{
		Name:        string(p.ID()),
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var perr *Error
			if errors.As(err, &perr) {
				return perr.Kind != KindTransport
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to cb.State) {
			log.Warn("circuit breaker state change",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &breakerProvider{Provider: p, cb: cb.NewCircuitBreaker(settings)}
}

func (b *breakerProvider) Search(ctx context.Context, q Query) ([]Result, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.Provider.Search(ctx, q)
	})
	if err != nil {
		if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
			return nil, TransportError(b.ID(), errors.New("circuit open"))
		}
		return nil, err
	}
	results, _ := out.([]Result)
	return results, nil
}

package ai

import (
	"context"
	"time"

	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/resilience"
)

// BreakerGenerator short-circuits calls while the upstream keeps failing.
// Only transient failures count against it; a rejected prompt says nothing
// about upstream health.
type BreakerGenerator struct {
	next    Generator
	breaker *resilience.CircuitBreaker[*Response]
}

func NewBreakerGenerator(next Generator, retryTimeout time.Duration, log *logger.Logger) *BreakerGenerator {
	cfg := resilience.DefaultCircuitBreakerConfig("gemini")
	cfg.RetryTimeout = retryTimeout
	cfg.IsExcluded = func(err error) bool { return !IsTransient(err) }

	return &BreakerGenerator{
		next:    next,
		breaker: resilience.NewCircuitBreaker[*Response](cfg, log),
	}
}

func (b *BreakerGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	return b.breaker.Execute(func() (*Response, error) {
		return b.next.Generate(ctx, req)
	})
}

// State exposes the breaker state for health reporting
func (b *BreakerGenerator) State() resilience.CircuitBreakerState {
	return b.breaker.GetState()
}

// Counts exposes the breaker counters of the current generation
func (b *BreakerGenerator) Counts() map[string]any {
	return b.breaker.GetMetrics()
}

package resilience

import (
	"errors"
	"fmt"
	"time"

	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling the protected function while the
// breaker is open or its half-open probe budget is used up.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitBreakerState represents the current state of a circuit breaker
type CircuitBreakerState string

const (
	StateClosed   CircuitBreakerState = "closed"
	StateOpen     CircuitBreakerState = "open"
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	Name string
	// FailureThreshold consecutive failures open the circuit
	FailureThreshold uint32
	// SuccessThreshold probes are let through while half-open
	SuccessThreshold uint32
	// Interval clears the counts while closed; 0 never clears
	Interval time.Duration
	// RetryTimeout is how long the circuit stays open before probing
	RetryTimeout time.Duration
	// IsExcluded errors count neither as success nor failure
	IsExcluded func(error) bool
}

// DefaultCircuitBreakerConfig returns a default circuit breaker configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Interval:         time.Minute,
		RetryTimeout:     60 * time.Second,
	}
}

// CircuitBreaker wraps gobreaker with logging and Prometheus state tracking
type CircuitBreaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
	log  *logger.Logger
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker[T any](config CircuitBreakerConfig, log *logger.Logger) *CircuitBreaker[T] {
	if log == nil {
		log = logger.GetGlobal()
	}
	threshold := config.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(config.Name).Set(0)

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.SuccessThreshold,
		Interval:    config.Interval,
		Timeout:     config.RetryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsExcluded: config.IsExcluded,
	}

	return &CircuitBreaker[T]{
		name: config.Name,
		cb:   gobreaker.NewCircuitBreaker[T](settings),
		log:  log,
	}
}

// Execute runs fn through the circuit breaker
func (b *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := b.cb.Execute(fn)
	if err == nil {
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.log.Warn("Circuit breaker preventing request",
			"name", b.name,
			"state", string(b.GetState()),
		)
		return result, fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}

	b.log.Debug("Circuit breaker recorded error",
		"name", b.name,
		"error", err.Error(),
		"duration", time.Since(start).String(),
	)
	return result, err
}

// GetState returns the current state of the circuit breaker
func (b *CircuitBreaker[T]) GetState() CircuitBreakerState {
	switch b.cb.State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// GetMetrics returns the counters of the current generation
func (b *CircuitBreaker[T]) GetMetrics() map[string]any {
	counts := b.cb.Counts()
	return map[string]any{
		"name":                  b.name,
		"state":                 string(b.GetState()),
		"requests":              counts.Requests,
		"total_successes":       counts.TotalSuccesses,
		"total_failures":        counts.TotalFailures,
		"consecutive_failures":  counts.ConsecutiveFailures,
		"consecutive_successes": counts.ConsecutiveSuccesses,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

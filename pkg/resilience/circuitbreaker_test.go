package resilience

import (
	"errors"
	"testing"
	"time"

	"emotion-character-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker[int](CircuitBreakerConfig{
		Name:             "test-open",
		FailureThreshold: 2,
		RetryTimeout:     time.Hour,
	}, logger.Nop())

	calls := 0
	fail := func() (int, error) { calls++; return 0, errBoom }

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(fail)
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls, "open circuit must not call through")
}

func TestExcludedErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker[int](CircuitBreakerConfig{
		Name:             "test-excluded",
		FailureThreshold: 1,
		RetryTimeout:     time.Hour,
		IsExcluded:       func(err error) bool { return errors.Is(err, errBoom) },
	}, logger.Nop())

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errBoom })
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	v, err := cb.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, uint32(1), cb.GetMetrics()["total_successes"])
}

func TestHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker[string](CircuitBreakerConfig{
		Name:             "test-recover",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		RetryTimeout:     20 * time.Millisecond,
	}, logger.Nop())

	_, err := cb.Execute(func() (string, error) { return "", errBoom })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	out, err := cb.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, StateClosed, cb.GetState())
}

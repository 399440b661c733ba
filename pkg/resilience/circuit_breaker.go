// Package resilience wraps sony/gobreaker behind a small interface so
// callers depend on Execute only.
package resilience

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/bpmflow/bpmflow/pkg/observability"
)

// CircuitBreakerConfig contains circuit breaker settings
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips the breaker
	FailureThreshold uint32
	// ResetTimeout is how long the breaker stays open before probing again
	ResetTimeout time.Duration
}

// CircuitBreaker guards an external dependency from repeated failures
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	logger observability.Logger
}

// NewCircuitBreaker creates a named circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig, logger observability.Logger) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout == 0 {
		config.ResetTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    name,
		Timeout: config.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &CircuitBreaker{
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// Execute runs fn through the breaker
func (c *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return c.cb.Execute(fn)
}

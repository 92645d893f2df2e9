package ai

import (
	"fmt"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps provider calls with the circuit breaker pattern.
// A nil *CircuitBreaker runs calls directly.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewCircuitBreaker creates a breaker for generation calls of one task.
// It returns nil when the breaker is disabled.
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker[T] {
	if !cfg.Enabled {
		return nil
	}

	return newBreaker[T]("AI-"+name, cfg, logger, func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
	})
}

// NewModelCircuitBreaker creates a breaker for model-info lookups.
// Model info is less critical, so it trips only on a high failure ratio.
func NewModelCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker[T] {
	if !cfg.Enabled {
		return nil
	}

	return newBreaker[T]("AI-Model-"+name, cfg, logger, func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.8
	})
}

func newBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger, readyToTrip func(gobreaker.Counts) bool) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute executes the provided function with circuit breaker protection
func (b *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns circuit breaker statistics
func (b *CircuitBreaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}

	counts := b.cb.Counts()
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"enabled": true,
		"counts": map[string]uint32{
			"requests":              counts.Requests,
			"total_successes":       counts.TotalSuccesses,
			"total_failures":        counts.TotalFailures,
			"consecutive_successes": counts.ConsecutiveSuccesses,
			"consecutive_failures":  counts.ConsecutiveFailures,
		},
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *CircuitBreaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}

// String names the breaker for log lines.
func (b *CircuitBreaker[T]) String() string {
	if b == nil || b.cb == nil {
		return "disabled"
	}
	return fmt.Sprintf("%s(%s)", b.cb.Name(), b.cb.State())
}

package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"careerkit/internal/errors"
)

const maxBackoff = 30 * time.Second

var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// isTransient reports network errors, and API errors whose status (as
// extracted by status) is worth retrying.
func isTransient(err error, status func(error) (int, bool)) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	code, ok := status(err)
	return ok && retryableStatuses[code]
}

// retryPolicy runs a provider call up to maxRetries+1 times.
type retryPolicy struct {
	maxRetries  int
	baseDelay   time.Duration
	isRetryable func(error) bool
	logger      *errors.Logger
}

// backoff returns the delay before the given attempt: exponential with up
// to 10% random jitter, capped at maxBackoff.
func (p retryPolicy) backoff(attempt int) time.Duration {
	base := p.baseDelay
	if base <= 0 {
		base = time.Second
	}
	delay := base << min(max(attempt-1, 0), 16)

	var jitter time.Duration
	if jitterMax := int64(float64(delay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(delay+jitter, maxBackoff)
}

// withRetry calls fn until it succeeds, returns an error isRetryable
// rejects, or maxRetries retries have been spent. It waits backoff(n)
// before retry n and gives up early when ctx ends.
func withRetry[T any](ctx context.Context, p retryPolicy, operation string, fn func() (T, error)) (T, error) {
	result, err := fn()
	attempt := 0
	for err != nil && attempt < p.maxRetries && p.isRetryable != nil && p.isRetryable(err) {
		attempt++
		p.logger.Warn("Retrying AI operation",
			"operation", operation,
			"attempt", attempt,
			"max_retries", p.maxRetries,
			"error", err.Error())

		select {
		case <-time.After(p.backoff(attempt)):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}

		if result, err = fn(); err == nil {
			p.logger.Info("AI operation succeeded after retry", "operation", operation, "total_attempts", attempt+1)
		}
	}

	switch {
	case err == nil:
		return result, nil
	case p.maxRetries == 0:
		return result, err
	default:
		return result, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, p.maxRetries, err)
	}
}

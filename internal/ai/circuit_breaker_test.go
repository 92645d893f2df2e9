package ai

import (
	"errors"
	"testing"
	"time"

	"careerkit/internal/config"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
}

func TestIndependentCircuitBreakers(t *testing.T) {
	coverCB := NewCircuitBreaker[string]("cover_letter", breakerConfig(), nil)
	resumeCB := NewCircuitBreaker[string]("custom_resume", breakerConfig(), nil)

	assert.Equal(t, "AI-cover_letter", coverCB.Stats()["name"])
	assert.Equal(t, "AI-custom_resume", resumeCB.Stats()["name"])
	assert.Equal(t, "closed", coverCB.Stats()["state"])

	failure := errors.New("upstream unavailable")
	for range 2 {
		_, err := coverCB.Execute(func() (string, error) { return "", failure })
		assert.ErrorIs(t, err, failure)
	}

	assert.False(t, coverCB.IsHealthy(), "cover letter breaker should be open")
	assert.True(t, resumeCB.IsHealthy(), "resume breaker should be unaffected")

	_, err := coverCB.Execute(func() (string, error) { return "never called", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	out, err := resumeCB.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestModelCircuitBreakerIsLenient(t *testing.T) {
	cb := NewModelCircuitBreaker[int]("cover_letter", breakerConfig(), nil)
	assert.Equal(t, "AI-Model-cover_letter", cb.Stats()["name"])

	failure := errors.New("lookup failed")
	for range 4 {
		_, _ = cb.Execute(func() (int, error) { return 0, failure })
	}
	assert.True(t, cb.IsHealthy(), "fewer than five requests never trip the model breaker")

	_, _ = cb.Execute(func() (int, error) { return 0, failure })
	assert.False(t, cb.IsHealthy())
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := NewCircuitBreaker[string]("disabled", config.CircuitBreakerConfig{}, nil)
	require.Nil(t, cb)

	out, err := cb.Execute(func() (string, error) { return "direct", nil })
	require.NoError(t, err)
	assert.Equal(t, "direct", out)
	assert.True(t, cb.IsHealthy())
	assert.Equal(t, map[string]any{"enabled": false}, cb.Stats())
	assert.Equal(t, "disabled", cb.String())
}

func TestCircuitBreakerStatsCounts(t *testing.T) {
	cb := NewCircuitBreaker[string]("stats", breakerConfig(), nil)
	_, _ = cb.Execute(func() (string, error) { return "ok", nil })

	counts, ok := cb.Stats()["counts"].(map[string]uint32)
	require.True(t, ok)
	assert.Equal(t, uint32(1), counts["requests"])
	assert.Equal(t, uint32(1), counts["total_successes"])
}

package ai

import (
	"context"
	"errors"
	"testing"

	"careerkit/internal/config"
	apperrors "careerkit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuard(t *testing.T, breaker bool) guard[string, string] {
	t.Helper()
	retries := 1
	cfg := config.OperationAIConfig{
		Model:      "test-model",
		MaxRetries: &retries,
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          breaker,
			MaxRequests:      1,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}
	transient := func(err error) bool { return err.Error() == "transient" }
	return newGuard[string, string]("test", TaskCoverLetter, cfg, transient, apperrors.NewDiscardLogger())
}

func TestGuardGenerate(t *testing.T) {
	g := testGuard(t, false)
	usage := &TokenUsage{InputTokens: 3, OutputTokens: 5, TotalTokens: 8}

	calls := 0
	text, got, err := g.generate(context.Background(), "prompt",
		func(context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("transient")
			}
			return "Dear team", nil
		},
		func(resp string) (string, *TokenUsage) { return resp, usage })

	require.NoError(t, err)
	assert.Equal(t, "Dear team", text)
	assert.Same(t, usage, got)
	assert.Equal(t, 2, calls)
}

func TestGuardGenerateFailures(t *testing.T) {
	g := testGuard(t, false)
	read := func(resp string) (string, *TokenUsage) { return resp, nil }

	_, _, err := g.generate(context.Background(), "prompt",
		func(context.Context) (string, error) { return "", errors.New("quota exceeded") }, read)
	assert.True(t, apperrors.IsKind(err, apperrors.KindGeneration))
	assert.ErrorContains(t, err, "quota exceeded")

	_, _, err = g.generate(context.Background(), "prompt",
		func(context.Context) (string, error) { return "", nil }, read)
	assert.ErrorContains(t, err, "empty completion")
}

func TestGuardModelInfo(t *testing.T) {
	g := testGuard(t, true)

	info := g.modelInfo(context.Background(),
		func(context.Context) (string, error) { return "v2", nil },
		func(version string, info *ModelInfo) { info.Version = version })
	assert.Equal(t, &ModelInfo{Provider: "test", Name: "test-model", Version: "v2", Available: true}, info)

	info = g.modelInfo(context.Background(),
		func(context.Context) (string, error) { return "", errors.New("404") },
		func(string, *ModelInfo) { t.Fatal("describe called on failure") })
	assert.False(t, info.Available)
	assert.Contains(t, info.Error, "404")

	stats := g.CircuitBreakerStats()
	assert.Equal(t, true, stats["overall_healthy"])
	assert.Contains(t, stats, "ai_operations")
	assert.Contains(t, stats, "model_operations")
}

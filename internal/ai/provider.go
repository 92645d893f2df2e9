package ai

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/config"
	apperrors "careerkit/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const modelLookupTimeout = 10 * time.Second

// guard is the resilience shared by every provider. R is the provider's
// completion type and M its model-description type.
type guard[R, M any] struct {
	provider string
	cfg      config.OperationAIConfig
	gen      *CircuitBreaker[R]
	lookup   *CircuitBreaker[M]
	retry    retryPolicy
	logger   *apperrors.Logger
}

func newGuard[R, M any](provider, task string, cfg config.OperationAIConfig, retryable func(error) bool, logger *apperrors.Logger) guard[R, M] {
	maxRetries := 0
	if cfg.MaxRetries != nil {
		maxRetries = *cfg.MaxRetries
	}
	return guard[R, M]{
		provider: provider,
		cfg:      cfg,
		gen:      NewCircuitBreaker[R](task, cfg.CircuitBreaker, logger),
		lookup:   NewModelCircuitBreaker[M](task, cfg.CircuitBreaker, logger),
		retry:    retryPolicy{maxRetries: maxRetries, isRetryable: retryable, logger: logger},
		logger:   logger,
	}
}

// generate runs call behind the breaker and retry policy inside a
// "<provider>.generate" span. read pulls the text and usage out of the
// provider's response.
func (g guard[R, M]) generate(ctx context.Context, prompt string, call func(context.Context) (R, error), read func(R) (string, *TokenUsage)) (string, *TokenUsage, error) {
	op := g.provider + ".generate"
	ctx, span := otel.Tracer("careerkit.ai."+g.provider).Start(ctx, op)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", g.provider),
		attribute.String("ai.model", g.cfg.Model),
		attribute.Int("input.prompt_length", len(prompt)),
	)
	if g.cfg.Temperature != nil {
		span.SetAttributes(attribute.Float64("ai.temperature", float64(*g.cfg.Temperature)))
	}

	resp, err := g.gen.Execute(func() (R, error) {
		return withRetry(ctx, g.retry, op, func() (R, error) { return call(ctx) })
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", nil, apperrors.NewGenerationError("Failed to generate content", err)
	}

	text, usage := read(resp)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	if text == "" {
		span.SetStatus(codes.Error, "empty completion")
		return "", usage, apperrors.NewGenerationError("Model returned an empty completion", nil)
	}

	span.SetAttributes(attribute.Int("output.length", len(text)))
	return text, usage, nil
}

// modelInfo looks the configured model up behind the lookup breaker. A
// failed lookup is reported in the result, not returned.
func (g guard[R, M]) modelInfo(ctx context.Context, call func(context.Context) (M, error), describe func(M, *ModelInfo)) *ModelInfo {
	info := &ModelInfo{Provider: g.provider, Name: g.cfg.Model}

	ctx, cancel := context.WithTimeout(ctx, modelLookupTimeout)
	defer cancel()

	model, err := g.lookup.Execute(func() (M, error) { return call(ctx) })
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.cfg.Model,
			"provider", g.provider,
			"error", err.Error())
		return info
	}

	info.Available = true
	describe(model, info)
	return info
}

// CircuitBreakerStats reports both breakers.
func (g guard[R, M]) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.gen.Stats(),
		"model_operations": g.lookup.Stats(),
		"overall_healthy":  g.gen.IsHealthy() && g.lookup.IsHealthy(),
	}
}

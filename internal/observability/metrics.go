package observability

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Document tasks recorded by RecordDocument.
const (
	TaskCoverLetter     = "cover_letter"
	TaskCustomResume    = "custom_resume"
	TaskFormattedResume = "formatted_resume"
)

// TokenUsage is the token accounting reported by one generation call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Metrics holds the instruments careerkit records to.
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	DocumentsRendered     metric.Int64Counter
	CoverLettersGenerated metric.Int64Counter
	ResumesCustomized     metric.Int64Counter
	ResumesFormatted      metric.Int64Counter

	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	RateLimitHits metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.AIRequestCount, "careerkit_ai_requests_total", "Generation requests sent to the model"},
		{&m.AIErrorCount, "careerkit_ai_errors_total", "Generation requests that failed"},
		{&m.DocumentsRendered, "careerkit_documents_rendered_total", "Documents written, by task and format"},
		{&m.CoverLettersGenerated, "careerkit_cover_letters_generated_total", "Cover letters produced"},
		{&m.ResumesCustomized, "careerkit_resumes_customized_total", "Resumes rewritten for a job description"},
		{&m.ResumesFormatted, "careerkit_resumes_formatted_total", "Resumes reformatted without generation"},
		{&m.CertReloadCount, "careerkit_cert_reloads_total", "TLS certificate reloads"},
		{&m.RateLimitHits, "careerkit_rate_limit_hits_total", "Requests rejected by the rate limiter"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	if m.AIProcessingTime, err = meter.Float64Histogram("careerkit_ai_processing_duration_seconds",
		metric.WithDescription("Time spent waiting for the model"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create generation duration histogram: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram("careerkit_ai_token_usage_total",
		metric.WithDescription("Tokens per generation request, by token_type"), metric.WithUnit("tokens")); err != nil {
		return nil, fmt.Errorf("failed to create token usage histogram: %w", err)
	}
	if m.CertExpiryTime, err = meter.Float64Gauge("careerkit_cert_expiry_seconds",
		metric.WithDescription("Seconds until the serving certificate expires"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry gauge: %w", err)
	}

	return m, nil
}

// GetMetrics returns the instruments, or an empty set when metrics are off.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// TrackGeneration runs fn inside an "ai.<task>" span and records duration,
// request, error and token metrics for it.
func (om *ObservabilityManager) TrackGeneration(ctx context.Context, task string, fn func(context.Context) (*TokenUsage, error)) error {
	m := om.GetMetrics()
	if m.AIRequestCount == nil {
		_, err := fn(ctx)
		return err
	}

	ctx, span := om.Tracer("careerkit.ai").Start(ctx, "ai."+task)
	defer span.End()

	start := time.Now()
	usage, err := fn(ctx)
	elapsed := time.Since(start)

	attrs := []attribute.KeyValue{
		attribute.String("operation", task),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	settings, enabled := om.aiSettings()
	if !enabled {
		return err
	}

	opt := metric.WithAttributes(attrs...)
	m.AIRequestCount.Add(ctx, 1, opt)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, opt)
	}
	if settings.TrackDuration {
		m.AIProcessingTime.Record(ctx, elapsed.Seconds(), opt)
	}
	if usage != nil && settings.TrackTokenUsage {
		for tokenType, n := range map[string]int64{
			"input":  usage.InputTokens,
			"output": usage.OutputTokens,
			"total":  usage.TotalTokens,
		} {
			m.AITokenUsage.Record(ctx, n, metric.WithAttributes(append(attrs, attribute.String("token_type", tokenType))...))
		}
	}

	return err
}

// RecordDocument counts a written document for task in format.
func (om *ObservabilityManager) RecordDocument(ctx context.Context, task, format string, success bool) {
	m := om.GetMetrics()
	if m.DocumentsRendered == nil || !om.businessMetricsEnabled() {
		return
	}

	opt := metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("format", format),
		attribute.Bool("success", success),
	)
	m.DocumentsRendered.Add(ctx, 1, opt)

	perTask := map[string]metric.Int64Counter{
		TaskCoverLetter:     m.CoverLettersGenerated,
		TaskCustomResume:    m.ResumesCustomized,
		TaskFormattedResume: m.ResumesFormatted,
	}
	if counter, ok := perTask[task]; ok {
		counter.Add(ctx, 1, opt)
	}
}

// RecordRateLimitHit counts a request rejected by the rate limiter.
func (om *ObservabilityManager) RecordRateLimitHit(ctx context.Context, limitBy string) {
	m := om.GetMetrics()
	if m.RateLimitHits == nil || !om.infrastructureEnabled(func(c config.InfrastructureMetricsConfig) bool { return c.TrackRateLimits }) {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limit_by", limitBy)))
}

// RecordCertReload counts a certificate reload and, on success, records
// the time left until the new certificate expires.
func (om *ObservabilityManager) RecordCertReload(ctx context.Context, success bool, notAfter time.Time) {
	m := om.GetMetrics()
	if m.CertReloadCount == nil || !om.infrastructureEnabled(func(c config.InfrastructureMetricsConfig) bool { return c.TrackCertReloads }) {
		return
	}
	m.CertReloadCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	if success && !notAfter.IsZero() {
		m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
	}
}

// aiSettings reports the generation metric switches. Without a loaded
// config everything is recorded.
func (om *ObservabilityManager) aiSettings() (config.AIOperationsMetricsConfig, bool) {
	if om.fullConfig == nil {
		return config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true}, true
	}
	settings := om.fullConfig.Observability.CustomMetrics.AIOperations
	return settings, settings.Enabled
}

func (om *ObservabilityManager) businessMetricsEnabled() bool {
	return om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.BusinessMetrics.Enabled
}

func (om *ObservabilityManager) infrastructureEnabled(track func(config.InfrastructureMetricsConfig) bool) bool {
	if om.fullConfig == nil {
		return true
	}
	infra := om.fullConfig.Observability.CustomMetrics.Infrastructure
	return infra.Enabled && track(infra)
}

// Package observability sets up OpenTelemetry tracing and metrics and
// records generation, document and infrastructure metrics.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"careerkit/internal/config"
	apperrors "careerkit/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultCollectionInterval = 15 * time.Second

// ObservabilityConfig is the subset of settings the manager is built from.
type ObservabilityConfig struct {
	ServiceName     string
	ServiceVersion  string
	ServiceInstance string
	Enabled         bool
	ConsoleOutput   bool
	PrettyPrint     bool
	SampleRate      float64
	Prometheus      PrometheusConfig
}

// ObservabilityManager owns the tracer and meter providers. A nil manager
// is valid and records nothing.
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config
	logger         *apperrors.Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager builds the providers described by obsConfig. When
// obsConfig.Enabled is false the manager is inert.
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config, logger *apperrors.Logger) (*ObservabilityManager, error) {
	return newObservabilityManager(obsConfig, fullConfig, logger)
}

// newObservabilityManager accepts extra metric readers so tests can collect
// without an exporter.
func newObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config, logger *apperrors.Logger, readers ...sdkmetric.Reader) (*ObservabilityManager, error) {
	if logger == nil {
		logger = apperrors.NewDiscardLogger()
	}

	om := &ObservabilityManager{config: obsConfig, fullConfig: fullConfig, logger: logger}
	if !obsConfig.Enabled {
		return om, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(obsConfig.ServiceName),
		semconv.ServiceVersion(obsConfig.ServiceVersion),
		semconv.ServiceInstanceID(om.instanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := om.startTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := om.startMetrics(res, readers); err != nil {
		_ = om.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Debug("Observability initialized",
		"service", obsConfig.ServiceName,
		"console", obsConfig.ConsoleOutput,
		"otlp", om.otlpEnabled(),
		"prometheus", obsConfig.Prometheus.Enabled)
	return om, nil
}

func (om *ObservabilityManager) startTracing(res *resource.Resource) error {
	exporter, err := om.spanExporter()
	if err != nil {
		return err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(om.config.SampleRate))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// spanExporter picks console output over OTLP. Spans are sampled but not
// exported when neither is configured.
func (om *ObservabilityManager) spanExporter() (sdktrace.SpanExporter, error) {
	switch {
	case om.config.ConsoleOutput:
		var opts []stdouttrace.Option
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create console trace exporter: %w", err)
		}
		return exporter, nil
	case om.otlpEnabled():
		otlp := om.fullConfig.Observability.OTLP
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlp.Endpoint)}
		if otlp.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(otlp.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
		}
		exporter, err := otlptracehttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, nil
	}
}

func (om *ObservabilityManager) startMetrics(res *resource.Resource, extra []sdkmetric.Reader) error {
	readers, err := om.metricReaders(extra)
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	om.metrics, err = newMetrics(mp.Meter(om.config.ServiceName))
	return err
}

// metricReaders returns one reader per configured destination, falling back
// to a manual reader so instruments always have a pipeline.
func (om *ObservabilityManager) metricReaders(extra []sdkmetric.Reader) ([]sdkmetric.Reader, error) {
	readers := append([]sdkmetric.Reader{}, extra...)
	interval := om.collectionInterval()

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if om.otlpEnabled() {
		otlp := om.fullConfig.Observability.OTLP
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlp.Endpoint)}
		if otlp.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(otlp.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
		}
		exporter, err := otlpmetrichttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, err
		}
		shutdown, err := StartPrometheusServer(mux, om.config.Prometheus.Port, om.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
		}
		readers = append(readers, reader)
		om.shutdownFuncs = append(om.shutdownFuncs, shutdown)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

// HTTPMiddleware wraps handlers with otelhttp spans and metrics.
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a named tracer, or a no-op one when tracing is off.
func (om *ObservabilityManager) Tracer(name string) trace.Tracer {
	if om == nil || om.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops every exporter and server that was started,
// newest first.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}

	var errs []error
	for i := len(om.shutdownFuncs) - 1; i >= 0; i-- {
		if err := om.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	om.shutdownFuncs = nil
	return errors.Join(errs...)
}

func (om *ObservabilityManager) otlpEnabled() bool {
	return om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled
}

func (om *ObservabilityManager) instanceID() string {
	switch {
	case om.config.ServiceInstance != "":
		return om.config.ServiceInstance
	case om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "":
		return om.fullConfig.Observability.ServiceInstance
	default:
		return om.config.ServiceName + "-1"
	}
}

func (om *ObservabilityManager) collectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return defaultCollectionInterval
}

package observability

import (
	"careerkit/internal/config"
)

// GetObservabilityConfig derives the manager settings from the loaded
// config. version fills in the service version when the config leaves it
// empty. A nil config yields console tracing plus a Prometheus endpoint on
// :9090.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    "careerkit",
			ServiceVersion: version,
			Enabled:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Prometheus:     PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9090"},
		}
	}

	obs := cfg.Observability
	if obs.ServiceVersion != "" {
		version = obs.ServiceVersion
	}

	return ObservabilityConfig{
		ServiceName:     obs.ServiceName,
		ServiceVersion:  version,
		ServiceInstance: obs.ServiceInstance,
		Enabled:         obs.Enabled,
		ConsoleOutput:   obs.ConsoleOutput,
		PrettyPrint:     obs.Console.PrettyPrint,
		SampleRate:      obs.SampleRate,
		Prometheus: PrometheusConfig{
			Enabled:  obs.Prometheus.Enabled,
			Endpoint: obs.Prometheus.Endpoint,
			Port:     obs.Prometheus.Port,
		},
	}
}

package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultMaxFileSize is the upload limit: 32 MiB.
const DefaultMaxFileSize = 32 << 20

// defaults lists every key with its default, grouped by section. Each key
// needs an entry so that CAREERKIT_* environment variables can override it.
var defaults = []struct {
	section string
	values  map[string]any
}{
	{"ai", map[string]any{
		"provider":        "gemini",
		"model":           "gemini-2.0-flash",
		"baseURL":         "",
		"apiKey":          "",
		"timeout":         60 * time.Second,
		"maxRetries":      0,
		"temperature":     0.7,
		"topP":            0.9,
		"maxOutputTokens": 1024,
	}},
	// inherited by each task unless the task overrides it
	{"ai.circuitBreaker", map[string]any{
		"enabled":          true,
		"maxRequests":      3,
		"interval":         time.Minute,
		"timeout":          time.Minute,
		"minRequests":      3,
		"failureThreshold": 0.6,
	}},
	{"ai.coverLetter", map[string]any{"timeout": 90 * time.Second}},

	{"server", map[string]any{
		"host":            "localhost",
		"port":            "8080",
		"readTimeout":     30 * time.Second,
		"writeTimeout":    2 * time.Minute,
		"idleTimeout":     2 * time.Minute,
		"shutdownTimeout": 30 * time.Second,
		"apiKeys":         []string{},
	}},
	{"server.tls", map[string]any{
		"mode":             "disabled",
		"certFile":         "",
		"keyFile":          "",
		"caFile":           "",
		"minVersion":       "1.2",
		"clientAuthPolicy": "require",
	}},
	{"server.tls.autoReload", map[string]any{"enabled": true, "debounceDelay": time.Second}},
	{"server.rateLimit", map[string]any{
		"enabled":        false,
		"requestsPerMin": 60,
		"burstCapacity":  10,
		"byIP":           true,
		"byAPIKey":       false,
		"window":         time.Minute,
	}},

	{"app", map[string]any{
		"logLevel":         "info",
		"defaultFormat":    "docx",
		"supportedFormats": []string{"docx", "pdf"},
		"maxFileSize":      DefaultMaxFileSize,
		"uploadDir":        "uploads",
		"outputDir":        "outputs",
		"chromePath":       "",
		"printTimeout":     time.Minute,
	}},

	{"storage", map[string]any{"backend": "local"}},
	{"storage.s3", map[string]any{
		"bucket":          "",
		"region":          "auto",
		"endpoint":        "",
		"accessKeyID":     "",
		"secretAccessKey": "",
		"prefix":          "",
	}},

	{"vault", map[string]any{"enabled": false, "address": "", "token": "", "tokenFile": "", "namespace": ""}},
	{"vault.secrets", map[string]any{"apiKeys": "", "aiKey": "", "tlsCerts": ""}},

	// empty serviceVersion falls back to the build version, empty
	// serviceInstance to "<serviceName>-1"
	{"observability", map[string]any{
		"enabled":         true,
		"serviceName":     "careerkit",
		"serviceVersion":  "",
		"serviceInstance": "",
		"consoleOutput":   false,
		"sampleRate":      1.0,
	}},
	{"observability.metrics", map[string]any{"enabled": true, "collectionInterval": 15 * time.Second}},
	{"observability.customMetrics.aiOperations", map[string]any{"enabled": true, "trackDuration": true, "trackTokenUsage": true}},
	{"observability.customMetrics.businessMetrics", map[string]any{"enabled": true}},
	{"observability.customMetrics.infrastructure", map[string]any{"enabled": true, "trackRateLimits": true, "trackCertReloads": true}},
	{"observability.console", map[string]any{"prettyPrint": true}},
	{"observability.prometheus", map[string]any{"enabled": true, "endpoint": "/metrics", "port": "9090"}},
	{"observability.otlp", map[string]any{
		"enabled":  false,
		"endpoint": "http://localhost:4318",
		"insecure": true,
		"headers":  map[string]string{},
	}},
	{"observability.healthCheck", map[string]any{"timeout": 15 * time.Second, "aiModelCheckTimeout": 10 * time.Second}},
}

func setDefaults(v *viper.Viper) {
	for _, d := range defaults {
		for key, value := range d.values {
			v.SetDefault(d.section+"."+key, value)
		}
	}
}

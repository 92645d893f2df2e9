package server

import (
	"context"
	"time"

	"careerkit/internal/ai"
	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/observability"
	"careerkit/internal/storage"
	"careerkit/internal/workflow"
)

// HealthSource reports the state of the text generation backends.
// *ai.Service implements it.
type HealthSource interface {
	ModelInfo(ctx context.Context) map[string]*ai.ModelInfo
	CircuitBreakerStats() map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Certificate management
	CertificateManager *CertificateManager

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Upload size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Document processing
	Pipeline      *workflow.Pipeline
	Store         storage.Store
	Workspace     storage.Workspace
	DefaultFormat string
	Health        HealthSource

	Observability *observability.ObservabilityManager
	Logger        *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host            string
	Port            string
	Version         string
	TLSConfig       config.TLSConfig
	APIKeys         []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxRequestSize  int64
	DefaultFormat   string
	RateLimit       *config.RateLimitConfig
}

// Dependencies are the components requests are served with.
// Health and Observability may be nil.
type Dependencies struct {
	Pipeline      *workflow.Pipeline
	Store         storage.Store
	Workspace     storage.Workspace
	Health        HealthSource
	Observability *observability.ObservabilityManager
}

// NewServerConfig reads the server settings from the application config.
func NewServerConfig(cfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Version:         version,
		TLSConfig:       cfg.Server.TLS,
		APIKeys:         cfg.Server.APIKeys,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxRequestSize:  cfg.App.MaxFileSize,
		DefaultFormat:   cfg.App.DefaultFormat,
		RateLimit:       &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	defaultFormat := cfg.DefaultFormat
	if defaultFormat == "" {
		defaultFormat = "docx"
	}

	return &Server{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Version:         cfg.Version,
		AppConfig:       appCfg,
		TLSConfig:       cfg.TLSConfig,
		APIKeys:         apiKeyMap,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: shutdownTimeout,
		MaxRequestSize:  cfg.MaxRequestSize,
		RateLimit:       cfg.RateLimit,
		RateLimiter:     rateLimiter,
		Pipeline:        deps.Pipeline,
		Store:           deps.Store,
		Workspace:       deps.Workspace,
		DefaultFormat:   defaultFormat,
		Health:          deps.Health,
		Observability:   deps.Observability,
		Logger:          logger,
	}
}

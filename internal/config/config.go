package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "CAREERKIT"

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (CAREERKIT_AI_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	// file the values were read from, "" when none was found
	source  string
	prompts LoadedPrompts
}

// AIConfig holds text generation configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider        string        `mapstructure:"provider"` // "gemini" or "openai"
	Model           string        `mapstructure:"model"`
	BaseURL         string        `mapstructure:"baseURL"` // OpenAI-compatible endpoint, e.g. Groq
	Timeout         time.Duration `mapstructure:"timeout"`
	APIKey          string        `mapstructure:"apiKey"`
	MaxRetries      int           `mapstructure:"maxRetries"`
	Temperature     float32       `mapstructure:"temperature"`
	TopP            float32       `mapstructure:"topP"`
	MaxOutputTokens int32         `mapstructure:"maxOutputTokens"`
	CustomPrompts   PromptConfig  `mapstructure:"customPrompts"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// Operation-specific configurations
	CoverLetter  OperationAIConfig `mapstructure:"coverLetter"`
	CustomResume OperationAIConfig `mapstructure:"customResume"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for one generation task.
// Pointer fields are unset until Get*Config fills them from the globals.
type OperationAIConfig struct {
	Provider        string               `mapstructure:"provider"`
	Model           string               `mapstructure:"model"`
	BaseURL         string               `mapstructure:"baseURL"`
	Timeout         *time.Duration       `mapstructure:"timeout"`
	APIKey          string               `mapstructure:"apiKey"`
	MaxRetries      *int                 `mapstructure:"maxRetries"`
	Temperature     *float32             `mapstructure:"temperature"`
	TopP            *float32             `mapstructure:"topP"`
	MaxOutputTokens *int32               `mapstructure:"maxOutputTokens"`
	CircuitBreaker  CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds prompt template overrides, inline or from files.
// A file wins over the inline string; both win over the built-in prompt.
type PromptConfig struct {
	CoverLetter       string `mapstructure:"coverLetter"`
	CoverLetterFile   string `mapstructure:"coverLetterFile"`
	CustomResume      string `mapstructure:"customResume"`
	CustomResumeFile  string `mapstructure:"customResumeFile"`
	McCombsResume     string `mapstructure:"mccombsResume"`
	McCombsResumeFile string `mapstructure:"mccombsResumeFile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication; empty disables the check
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`

	// Certificate content (used when loaded from Vault instead of files)
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2", "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls reloading certificate files when they change on disk
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"` // idle limiters older than this are evicted
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string        `mapstructure:"logLevel"`
	DefaultFormat    string        `mapstructure:"defaultFormat"`
	SupportedFormats []string      `mapstructure:"supportedFormats"`
	MaxFileSize      int64         `mapstructure:"maxFileSize"`
	UploadDir        string        `mapstructure:"uploadDir"`
	OutputDir        string        `mapstructure:"outputDir"`
	ChromePath       string        `mapstructure:"chromePath"`
	PrintTimeout     time.Duration `mapstructure:"printTimeout"`
}

// StorageConfig selects where generated artifacts are kept
type StorageConfig struct {
	Backend string   `mapstructure:"backend"` // "local" or "s3"
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds S3 (or S3-compatible, e.g. R2) settings
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyID"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	Prefix          string `mapstructure:"prefix"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// BusinessMetricsConfig holds document metrics configuration
type BusinessMetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	TrackRateLimits  bool `mapstructure:"trackRateLimits"`
	TrackCertReloads bool `mapstructure:"trackCertReloads"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(newViper())
}

// LoadConfigFile loads configuration from an explicit file path
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/careerkit/")
	v.AddConfigPath("$HOME/.careerkit")
	v.AddConfigPath(".")
	return v
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.source = v.ConfigFileUsed()
	config.applyFallbacks()

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate checks if the configuration is valid. The AI key is not checked
// here: only commands that generate text need it, see RequireAPIKey.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid AI provider: %s (must be 'gemini' or 'openai')", c.AI.Provider)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("AI maxRetries must not be negative")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("app maxFileSize must be positive")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.validateStorage(); err != nil {
		return fmt.Errorf("storage configuration error: %w", err)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// RequireAPIKey reports an error when no AI API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.AI.APIKey == "" && c.AI.CoverLetter.APIKey == "" && c.AI.CustomResume.APIKey == "" {
		return fmt.Errorf("AI API key is required (set %s_AI_APIKEY environment variable)", EnvPrefix)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "local":
		return nil
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required when storage backend is s3")
		}
		return nil
	default:
		return fmt.Errorf("invalid storage backend: %s (must be 'local' or 's3')", c.Storage.Backend)
	}
}

// applyOperationDefaults fills unset operation fields from the global AI configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.TopP == nil {
		topP := c.AI.TopP
		opCfg.TopP = &topP
	}
	if opCfg.MaxOutputTokens == nil {
		tokens := c.AI.MaxOutputTokens
		opCfg.MaxOutputTokens = &tokens
	}
	if opCfg.CircuitBreaker == (CircuitBreakerConfig{}) {
		opCfg.CircuitBreaker = c.AI.CircuitBreaker
	}
}

// GetCoverLetterConfig returns the AI configuration for cover letters with fallback to global config
func (c *Config) GetCoverLetterConfig() OperationAIConfig {
	config := c.AI.CoverLetter
	c.applyOperationDefaults(&config)
	return config
}

// GetCustomResumeConfig returns the AI configuration for resume customization with fallback to global config
func (c *Config) GetCustomResumeConfig() OperationAIConfig {
	config := c.AI.CustomResume
	c.applyOperationDefaults(&config)
	return config
}

// GetAddress returns the host:port the server listens on
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

package config

import (
	"cmp"
	"os"
	"strings"

	apperrors "careerkit/internal/errors"
)

// providerKeyEnv lists, per provider, the conventional variables consulted
// in order when no key is configured.
var providerKeyEnv = map[string][]string{
	"gemini": {"GEMINI_API_KEY"},
	"openai": {"GROQ_API_KEY", "OPENAI_API_KEY"},
}

// applyFallbacks fills values that viper cannot express as plain defaults.
func (c *Config) applyFallbacks() {
	if c.AI.APIKey == "" {
		for _, name := range providerKeyEnv[c.AI.Provider] {
			if key := os.Getenv(name); key != "" {
				c.AI.APIKey = key
				break
			}
		}
	}

	// CAREERKIT_SERVER_APIKEYS arrives as one comma-separated string
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = []string{os.Getenv(EnvPrefix + "_SERVER_APIKEYS")}
	}
	c.Server.APIKeys = splitList(strings.Join(c.Server.APIKeys, ","))

	tls := &c.Server.TLS
	tls.Mode = cmp.Or(tls.Mode, "disabled")
	if tls.Mode == "mutual" {
		tls.ClientAuthPolicy = cmp.Or(tls.ClientAuthPolicy, "require")
	}
	if tls.Mode != "disabled" {
		tls.MinVersion = cmp.Or(tls.MinVersion, "1.2")
	}

	if c.Observability.ServiceInstance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "1"
		}
		c.Observability.ServiceInstance = c.Observability.ServiceName + "-" + host
	}
	if c.App.LogLevel == "debug" {
		c.Observability.ConsoleOutput = true
	}
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LogSummary logs where the configuration came from and its main values.
// Secrets are reported only as present or absent.
func (c *Config) LogSummary(logger *apperrors.Logger) {
	logger.Debug("Configuration loaded",
		"file", cmp.Or(c.source, "none"),
		"ai_provider", c.AI.Provider,
		"ai_model", c.AI.Model,
		"ai_key_set", c.RequireAPIKey() == nil,
		"address", c.GetAddress(),
		"log_level", c.App.LogLevel,
		"default_format", c.App.DefaultFormat,
		"storage", c.Storage.Backend,
		"tls_mode", c.Server.TLS.Mode,
		"api_keys", len(c.Server.APIKeys),
		"vault", c.Vault.Enabled,
		"observability", c.Observability.Enabled)
}

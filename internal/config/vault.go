package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"careerkit/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets are KV v2 paths, written either as "<mount>/data/<name>" or
// "<mount>/<name>".
type VaultSecrets struct {
	APIKeys  string `mapstructure:"apiKeys"`  // key "keys": comma-separated server API keys
	AIKey    string `mapstructure:"aiKey"`    // key "api_key": generation provider key
	TLSCerts string `mapstructure:"tlsCerts"` // keys "cert", "key", "ca": PEM content
}

// SecretReader returns the data of the latest version of a KV v2 secret.
type SecretReader interface {
	ReadSecret(ctx context.Context, path string) (map[string]any, error)
}

// VaultClient reads KV v2 secrets.
type VaultClient struct {
	client *api.Client
}

// NewVaultClient connects to Vault and checks that it is reachable.
func NewVaultClient(ctx context.Context, cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().HealthWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", apiCfg.Address, err)
	}
	logger.Info("Connected to Vault", "address", apiCfg.Address, "version", health.Version, "sealed", health.Sealed)

	return &VaultClient{client: client}, nil
}

// resolveVaultToken prefers the inline token over the token file.
func resolveVaultToken(cfg VaultConfig) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.TokenFile == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to read vault token file: %w", err)
	}
	if token := strings.TrimSpace(string(raw)); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("vault token file %s is empty", cfg.TokenFile)
}

// ReadSecret implements SecretReader.
func (vc *VaultClient) ReadSecret(ctx context.Context, path string) (map[string]any, error) {
	mount, name, err := splitKVPath(path)
	if err != nil {
		return nil, err
	}
	secret, err := vc.client.KVv2(mount).Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", path, err)
	}
	return secret.Data, nil
}

// splitKVPath separates the engine mount from the secret name, dropping the
// "data/" segment of API-style paths.
func splitKVPath(path string) (mount, name string, err error) {
	mount, name, ok := strings.Cut(strings.Trim(path, "/"), "/")
	name = strings.TrimPrefix(name, "data/")
	if !ok || mount == "" || name == "" {
		return "", "", fmt.Errorf("invalid KV v2 secret path %q (want <mount>/<name>)", path)
	}
	return mount, name, nil
}

func readString(ctx context.Context, reader SecretReader, path, key string) (string, error) {
	data, err := reader.ReadSecret(ctx, path)
	if err != nil {
		return "", err
	}
	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return value, nil
}

// ApplyVaultSecrets overlays the configured Vault secrets onto cfg. It does
// nothing when Vault is disabled.
func ApplyVaultSecrets(ctx context.Context, cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := NewVaultClient(ctx, cfg.Vault, logger)
	if err != nil {
		return err
	}
	return applySecrets(ctx, client, cfg, logger)
}

// applySecrets copies every configured secret into cfg. Vault values take
// precedence over file and environment values.
func applySecrets(ctx context.Context, reader SecretReader, cfg *Config, logger *errors.Logger) error {
	paths := cfg.Vault.Secrets

	if paths.APIKeys != "" {
		value, err := readString(ctx, reader, paths.APIKeys, "keys")
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if keys := splitList(value); len(keys) > 0 {
			cfg.Server.APIKeys = keys
		}
		logger.Info("API keys loaded from Vault", "count", len(cfg.Server.APIKeys))
	}

	if paths.AIKey != "" {
		key, err := readString(ctx, reader, paths.AIKey, "api_key")
		if err != nil {
			return fmt.Errorf("failed to load AI API key from vault: %w", err)
		}
		if key != "" {
			cfg.AI.APIKey = key
			logger.Info("AI API key loaded from Vault")
		}
	}

	if paths.TLSCerts == "" {
		return nil
	}
	data, err := reader.ReadSecret(ctx, paths.TLSCerts)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
	}

	tls := &cfg.Server.TLS
	pems := []struct {
		key     string
		content *string
		file    *string
	}{
		{"cert", &tls.CertContent, &tls.CertFile},
		{"key", &tls.KeyContent, &tls.KeyFile},
		{"ca", &tls.CAContent, &tls.CAFile},
	}
	loaded := 0
	for _, p := range pems {
		if content, ok := data[p.key].(string); ok && content != "" {
			// a single source per PEM, so content replaces the file
			*p.content, *p.file = content, ""
			loaded++
		}
	}
	logger.Info("TLS certificates loaded from Vault", "certificates_loaded", loaded)
	return nil
}

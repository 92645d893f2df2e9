package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"careerkit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]map[string]any

func (f fakeSecrets) ReadSecret(_ context.Context, path string) (map[string]any, error) {
	data, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return data, nil
}

func TestSplitKVPath(t *testing.T) {
	tests := []struct {
		path      string
		wantMount string
		wantName  string
		wantErr   bool
	}{
		{path: "secret/data/careerkit/ai", wantMount: "secret", wantName: "careerkit/ai"},
		{path: "kv/careerkit/tls", wantMount: "kv", wantName: "careerkit/tls"},
		{path: "/secret/ai/", wantMount: "secret", wantName: "ai"},
		{path: "secret", wantErr: true},
		{path: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			mount, name, err := splitKVPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMount, mount)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	token, err := resolveVaultToken(VaultConfig{Token: "root"})
	require.NoError(t, err)
	assert.Equal(t, "root", token)

	_, err = resolveVaultToken(VaultConfig{})
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0600))
	_, err = resolveVaultToken(VaultConfig{TokenFile: empty})
	assert.ErrorContains(t, err, "is empty")

	_, err = resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token"})
	assert.ErrorContains(t, err, "failed to read vault token file")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Vault.Secrets = VaultSecrets{
		APIKeys:  "secret/data/keys",
		AIKey:    "secret/data/ai",
		TLSCerts: "secret/data/tls",
	}
	cfg.Server.APIKeys = []string{"from-env"}
	cfg.Server.TLS.CertFile = "/etc/cert.pem"

	reader := fakeSecrets{
		"secret/data/keys": {"keys": "k1, k2"},
		"secret/data/ai":   {"api_key": "vault-ai-key"},
		"secret/data/tls":  {"cert": "CERT", "key": "KEY"},
	}

	require.NoError(t, applySecrets(context.Background(), reader, cfg, errors.NewDiscardLogger()))
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "vault-ai-key", cfg.AI.APIKey)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CertFile)
	assert.Empty(t, cfg.Server.TLS.CAContent)
}

func TestApplySecrets_Errors(t *testing.T) {
	logger := errors.NewDiscardLogger()

	cfg := &Config{}
	cfg.Vault.Secrets.AIKey = "secret/data/missing"
	assert.ErrorContains(t, applySecrets(context.Background(), fakeSecrets{}, cfg, logger), "AI API key")

	cfg = &Config{}
	cfg.Vault.Secrets.APIKeys = "secret/data/keys"
	err := applySecrets(context.Background(), fakeSecrets{"secret/data/keys": {"keys": 42}}, cfg, logger)
	assert.ErrorContains(t, err, "is not a string")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{}
	cfg.AI.APIKey = "unchanged"
	require.NoError(t, ApplyVaultSecrets(context.Background(), cfg, errors.NewDiscardLogger()))
	assert.Equal(t, "unchanged", cfg.AI.APIKey)
}

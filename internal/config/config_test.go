package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GEMINI_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "CAREERKIT_AI_APIKEY", "CAREERKIT_SERVER_APIKEYS"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigFile_Defaults(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := LoadConfigFile(writeConfig(t, "app:\n  logLevel: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 0, cfg.AI.MaxRetries)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 0.0001)
	assert.InDelta(t, 0.9, cfg.AI.TopP, 0.0001)
	assert.Equal(t, int32(1024), cfg.AI.MaxOutputTokens)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "docx", cfg.App.DefaultFormat)
	assert.Equal(t, []string{"docx", "pdf"}, cfg.App.SupportedFormats)
	assert.Equal(t, int64(32<<20), cfg.App.MaxFileSize)
	assert.Equal(t, "uploads", cfg.App.UploadDir)
	assert.Equal(t, "outputs", cfg.App.OutputDir)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.True(t, cfg.AI.CircuitBreaker.Enabled)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigFile_EnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("CAREERKIT_AI_PROVIDER", "openai")
	t.Setenv("CAREERKIT_AI_MODEL", "llama3-70b-8192")
	t.Setenv("CAREERKIT_SERVER_PORT", "9000")
	t.Setenv("CAREERKIT_SERVER_APIKEYS", "alpha, beta ,")
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := LoadConfigFile(writeConfig(t, "server:\n  host: 0.0.0.0\n"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "llama3-70b-8192", cfg.AI.Model)
	assert.Equal(t, "groq-key", cfg.AI.APIKey)
	assert.Equal(t, "0.0.0.0:9000", cfg.GetAddress())
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	clearProviderEnv(t)

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "provider", yaml: "ai:\n  provider: claude\n", wantErr: "invalid AI provider"},
		{name: "default format", yaml: "app:\n  defaultFormat: odt\n", wantErr: "invalid default format"},
		{name: "storage backend", yaml: "storage:\n  backend: ftp\n", wantErr: "invalid storage backend"},
		{name: "s3 without bucket", yaml: "storage:\n  backend: s3\n", wantErr: "s3 bucket is required"},
		{name: "tls without cert", yaml: "server:\n  tls:\n    mode: server\n", wantErr: "TLS certificate and key are required"},
		{name: "negative retries", yaml: "ai:\n  maxRetries: -1\n", wantErr: "maxRetries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOperationConfigFallbacks(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := LoadConfigFile(writeConfig(t, `
ai:
  apiKey: global-key
  model: gemini-2.0-flash
  coverLetter:
    model: gemini-2.5-pro
    temperature: 0.2
`))
	require.NoError(t, err)

	cover := cfg.GetCoverLetterConfig()
	assert.Equal(t, "gemini-2.5-pro", cover.Model)
	assert.Equal(t, "global-key", cover.APIKey)
	require.NotNil(t, cover.Temperature)
	assert.InDelta(t, 0.2, *cover.Temperature, 0.0001)
	require.NotNil(t, cover.Timeout)
	assert.Equal(t, 90*time.Second, *cover.Timeout)
	assert.Equal(t, cfg.AI.CircuitBreaker, cover.CircuitBreaker)

	custom := cfg.GetCustomResumeConfig()
	assert.Equal(t, "gemini-2.0-flash", custom.Model)
	require.NotNil(t, custom.Timeout)
	assert.Equal(t, 60*time.Second, *custom.Timeout)
	require.NotNil(t, custom.MaxOutputTokens)
	assert.Equal(t, int32(1024), *custom.MaxOutputTokens)

	// the config's own values are not modified by the lookup
	assert.Nil(t, cfg.AI.CustomResume.Timeout)
}

func TestRequireAPIKey(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireAPIKey())

	cfg.AI.CustomResume.APIKey = "task-key"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestPrompts(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	promptFile := filepath.Join(dir, "cover.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("  Write for {{.UserName}}\n"), 0600))

	cfg, err := LoadConfigFile(writeConfig(t, `
ai:
  customPrompts:
    coverLetterFile: `+promptFile+`
    coverLetter: ignored because the file wins
    customResume: "  inline resume prompt "
`))
	require.NoError(t, err)

	prompts := cfg.Prompts()
	assert.Equal(t, "Write for {{.UserName}}", prompts.Get(PromptCoverLetter))
	assert.Equal(t, "inline resume prompt", prompts.Get(PromptCustomResume))
	assert.Empty(t, prompts.Get(PromptMcCombsResume))
	assert.Empty(t, prompts.Get("unknown"))
}

func TestLoadPromptFromFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte(" \n\t"), 0600))

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "missing", path: filepath.Join(dir, "missing.md"), wantErr: "no such file"},
		{name: "empty", path: empty, wantErr: "is empty"},
		{name: "directory", path: dir, wantErr: "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadPromptFromFile(tt.path, PromptCoverLetter)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name    string
		tls     TLSConfig
		wantErr string
	}{
		{name: "disabled", tls: TLSConfig{Mode: "disabled"}},
		{name: "server with files", tls: TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem"}},
		{name: "server with content", tls: TLSConfig{Mode: "server", CertContent: "c", KeyContent: "k", MinVersion: "1.3"}},
		{name: "unknown mode", tls: TLSConfig{Mode: "optional"}, wantErr: "invalid TLS mode"},
		{name: "missing key", tls: TLSConfig{Mode: "server", CertFile: "c.pem"}, wantErr: "certificate and key are required"},
		{
			name:    "duplicate cert source",
			tls:     TLSConfig{Mode: "server", CertFile: "c.pem", CertContent: "c", KeyFile: "k.pem"},
			wantErr: "both certFile and certContent",
		},
		{
			name:    "mutual without CA",
			tls:     TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem"},
			wantErr: "CA certificate is required",
		},
		{
			name:    "mutual bad policy",
			tls:     TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "maybe"},
			wantErr: "invalid clientAuthPolicy",
		},
		{
			name: "mutual",
			tls:  TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAContent: "ca", ClientAuthPolicy: "verify"},
		},
		{name: "bad version", tls: TLSConfig{Mode: "disabled", MinVersion: "1.1"}, wantErr: "invalid TLS minVersion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{TLS: tt.tls}}
			err := cfg.ValidateTLSConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

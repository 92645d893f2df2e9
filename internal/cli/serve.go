package cli

import (
	"context"
	"fmt"
	"time"

	"careerkit/internal/ai"
	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/observability"
	"careerkit/internal/server"
	"careerkit/internal/storage"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start an HTTP server that exposes the document tasks.

Available endpoints:
- POST /generate-cover-letter: Generate a cover letter (multipart: job_description, resume)
- POST /customize-resume: Reformat a resume, or customize it when job_description is sent
- GET /download/{filename}: Download a generated document
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

Without an AI API key the server still starts; only resume formatting works.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies the flags that were set onto the server config
func applyServeFlags(cmd *cobra.Command, cfg *config.ServerConfig) {
	overrides := map[string]*string{
		"port":      &cfg.Port,
		"host":      &cfg.Host,
		"tls-mode":  &cfg.TLS.Mode,
		"cert-file": &cfg.TLS.CertFile,
		"key-file":  &cfg.TLS.KeyFile,
		"ca-file":   &cfg.TLS.CAFile,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, &cfg.Server)

	// Validate TLS configuration after applying overrides
	tempConfig := &config.Config{Server: cfg.Server}
	if err := tempConfig.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer shutdownObservability(om, logger)

	workspace := storage.NewWorkspace(cfg.App)
	if err := workspace.Ensure(); err != nil {
		return err
	}

	store, err := storage.NewStore(cmd.Context(), cfg.Storage, workspace.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps := server.Dependencies{
		Store:         store,
		Workspace:     workspace,
		Observability: om,
	}

	var service *ai.Service
	if cfg.RequireAPIKey() != nil {
		logger.Warn("No AI API key configured, only resume formatting is available")
	} else {
		if service, err = newAIService(cfg, logger); err != nil {
			return err
		}
		defer closeService(service, logger)
		deps.Health = service
	}
	deps.Pipeline = newPipeline(cfg, service, om, logger)

	return server.NewServer(cfg, server.NewServerConfig(cfg, Version), deps, logger).Run(cmd.Context())
}

func shutdownObservability(om *observability.ObservabilityManager, logger *errors.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shutdown observability")
	}
}

// Command careerkit formats resumes and generates cover letters from the
// command line or over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"careerkit/internal/cli"
	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	// variables already set in the environment take precedence over .env
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "careerkit: %v\n", err)
		return 1
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "careerkit: %v\n", err)
		return 1
	}

	if err := config.ApplyVaultSecrets(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		return 1
	}

	logger.Debug("Starting careerkit", "version", cli.Version)
	cfg.LogSummary(logger)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Command failed")
		return 1
	}
	return 0
}

package cli

import (
	"fmt"

	"careerkit/internal/ai"
	"careerkit/internal/common"
	"careerkit/internal/config"
	"careerkit/internal/document"
	"careerkit/internal/errors"
	"careerkit/internal/formatters"
	"careerkit/internal/observability"
	"careerkit/internal/workflow"

	"github.com/spf13/cobra"
)

// documentFlags are shared by the commands that write a document.
type documentFlags struct {
	common.CommandConfig
}

func (f *documentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.OutputFile, "output", "o", "", "Output file path (default: <outputDir>/<generated name>)")
	cmd.Flags().StringVar(&f.DocumentFormat, "format", "", "Document format: docx or pdf")
	cmd.Flags().StringVar(&f.OutputFormat, "summary", "text", "Summary format: text, markdown or json")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.CompleteFormats(cfg.App.SupportedFormats, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolve applies config defaults and validates the requested format.
func (f *documentFlags) resolve(cfg *config.Config) error {
	if f.DocumentFormat == "" {
		f.DocumentFormat = cfg.App.DefaultFormat
	}
	if f.OutputDir == "" {
		f.OutputDir = cfg.App.OutputDir
	}
	if f.OutputFormat == "" {
		f.OutputFormat = "text"
	}
	if err := common.ValidateOutputFormat(f.DocumentFormat, cfg.App.SupportedFormats); err != nil {
		return err
	}
	return common.ValidateSummaryFormat(f.OutputFormat)
}

// newDocumentRegistry creates the docx and pdf writers, printing pdf
// through headless Chrome.
func newDocumentRegistry(cfg *config.Config) *formatters.Registry {
	return formatters.NewDocumentRegistry(document.NewChromePrinter(cfg.App.ChromePath, cfg.App.PrintTimeout))
}

// newPipeline builds a pipeline. A nil service limits it to reformatting.
func newPipeline(cfg *config.Config, service *ai.Service, om *observability.ObservabilityManager, logger *errors.Logger) *workflow.Pipeline {
	var generator workflow.Generator
	if service != nil {
		generator = service
	}

	return workflow.New(generator, newDocumentRegistry(cfg), logger,
		workflow.WithDefaultFormat(cfg.App.DefaultFormat),
		workflow.WithObservability(om))
}

// newAIService creates the generation service, requiring an API key.
func newAIService(cfg *config.Config, logger *errors.Logger) (*ai.Service, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, err.Error(), nil)
	}

	service, err := ai.NewService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}
	return service, nil
}

// closeService releases the provider clients.
func closeService(service *ai.Service, logger *errors.Logger) {
	if err := service.Close(); err != nil {
		logger.Warn("Failed to close AI service", "error", err)
	}
}

package cli

import (
	"context"
	"fmt"

	"careerkit/internal/common"
	"careerkit/internal/workflow"

	"github.com/spf13/cobra"
)

var customizeCmd = &cobra.Command{
	Use:   "customize [resume-file] [job-description-file]",
	Short: "Rewrite a resume for a job description",
	Long: `Rewrite a .docx resume for a .docx job description using AI and render
the result in the standard resume layout. With --strict the model is asked to
follow a fixed section template.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return customizeFlags.resolve(getConfigFromContext(cmd.Context()))
	},
	RunE: runCustomize,
}

var (
	customizeFlags  documentFlags
	customizeStrict bool
)

func init() {
	customizeFlags.register(customizeCmd)
	customizeCmd.Flags().BoolVar(&customizeStrict, "strict", false, "Use the fixed section template prompt")
}

func runCustomize(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	service, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeService(service, logger)

	pipeline := newPipeline(cfg, service, nil, logger)
	customize := pipeline.CustomizeResume
	if customizeStrict {
		customize = pipeline.CustomizeResumeStrict
	}

	_, err = common.RunDocumentCommand(
		cmd.Context(),
		logger,
		customizeFlags.CommandConfig,
		args,
		func(ctx context.Context, contents [][]byte) (workflow.Artifact, error) {
			return customize(ctx, contents[0], contents[1], customizeFlags.DocumentFormat)
		},
		func(contents [][]byte, cfg common.CommandConfig) {
			logger.Info("Starting resume customization",
				"resume_bytes", len(contents[0]),
				"job_bytes", len(contents[1]),
				"strict", customizeStrict,
				"format", cfg.DocumentFormat)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to customize resume: %w", err)
	}
	logger.Info("Resume customized successfully")
	return nil
}

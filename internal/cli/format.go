package cli

import (
	"context"

	"careerkit/internal/common"
	"careerkit/internal/workflow"

	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format [resume-file]",
	Short: "Reformat a resume into the standard layout",
	Long: `Reformat a .docx resume without changing its text. Every line is
classified (name, contact, section header, institution row, bullet and so on)
and re-rendered with the configured style table. No AI key is needed.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return formatFlags.resolve(getConfigFromContext(cmd.Context()))
	},
	RunE: runFormat,
}

var formatFlags documentFlags

func init() {
	formatFlags.register(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	pipeline := newPipeline(cfg, nil, nil, logger)

	_, err := common.RunDocumentCommand(
		cmd.Context(),
		logger,
		formatFlags.CommandConfig,
		args,
		func(ctx context.Context, contents [][]byte) (workflow.Artifact, error) {
			return pipeline.ReformatResume(ctx, contents[0], formatFlags.DocumentFormat)
		},
		func(contents [][]byte, cfg common.CommandConfig) {
			logger.Info("Starting resume formatting",
				"resume_bytes", len(contents[0]),
				"format", cfg.DocumentFormat)
		},
	)
	return err
}

package cli

import (
	"context"
	"fmt"

	"careerkit/internal/common"
	"careerkit/internal/types"
	"careerkit/internal/workflow"

	"github.com/spf13/cobra"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter [job-description-file] [resume-file]",
	Short: "Generate a cover letter for a job description",
	Long: `Generate a cover letter from a job description and a resume, both
.docx files. The letter body is written by the configured AI model and laid
out with a contact header, date, salutation and sign-off.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := coverLetterFlags.resolve(getConfigFromContext(cmd.Context())); err != nil {
			return err
		}
		coverLetterReq.Format = coverLetterFlags.DocumentFormat
		return coverLetterReq.Validate()
	},
	RunE: runCoverLetter,
}

var (
	coverLetterFlags documentFlags
	coverLetterReq   types.CoverLetterRequest
)

func init() {
	coverLetterFlags.register(coverLetterCmd)

	flags := coverLetterCmd.Flags()
	flags.StringVar(&coverLetterReq.UserName, "name", "", "Applicant name (required)")
	flags.StringVar(&coverLetterReq.JobTitle, "title", "", "Job title applied for (required)")
	flags.StringVar(&coverLetterReq.CompanyName, "company", "", "Company name (required)")
	flags.StringVar(&coverLetterReq.Email, "email", "", "Contact email")
	flags.StringVar(&coverLetterReq.Phone, "phone", "", "Contact phone")
	flags.StringVar(&coverLetterReq.GitHub, "github", "", "GitHub profile")
	flags.StringVar(&coverLetterReq.Address, "address", "", "Postal address")
	flags.StringVar(&coverLetterReq.Layout, "layout", types.LayoutLetter, "Letter layout: letter or plain")
}

func runCoverLetter(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	service, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeService(service, logger)

	pipeline := newPipeline(cfg, service, nil, logger)

	_, err = common.RunDocumentCommand(
		cmd.Context(),
		logger,
		coverLetterFlags.CommandConfig,
		args,
		func(ctx context.Context, contents [][]byte) (workflow.Artifact, error) {
			return pipeline.GenerateCoverLetter(ctx, coverLetterReq, contents[0], contents[1], coverLetterFlags.DocumentFormat)
		},
		func(contents [][]byte, cfg common.CommandConfig) {
			logger.Info("Starting cover letter generation",
				"company", coverLetterReq.CompanyName,
				"job_title", coverLetterReq.JobTitle,
				"job_bytes", len(contents[0]),
				"resume_bytes", len(contents[1]),
				"format", cfg.DocumentFormat)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to generate cover letter: %w", err)
	}
	logger.Info("Cover letter generated successfully")
	return nil
}

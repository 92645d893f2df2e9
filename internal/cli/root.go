package cli

import (
	"context"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/spf13/cobra"
)

// runtimeEnv is what every subcommand runs with.
type runtimeEnv struct {
	cfg    *config.Config
	logger *errors.Logger
}

type runtimeKey struct{}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "careerkit",
	Short: "Format resumes and generate cover letters",
	Long: `Careerkit reformats resumes into a consistent layout, rewrites them
for a job description using AI, and writes tailored cover letters. Documents
are read as .docx and written as .docx or .pdf.

Run "careerkit serve" to expose the same tasks over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		logger, err := errors.New("debug")
		if err != nil {
			return err
		}
		env := runtimeFrom(cmd.Context())
		cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, runtimeEnv{cfg: env.cfg, logger: logger}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.AddCommand(formatCmd, coverLetterCmd, customizeCmd, classifyCmd, versionCmd, serveCmd)
}

// Execute runs the command line with cfg and logger available to every
// subcommand.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	rootCmd.SetContext(context.WithValue(ctx, runtimeKey{}, runtimeEnv{cfg: cfg, logger: logger}))
	return rootCmd.Execute()
}

func runtimeFrom(ctx context.Context) runtimeEnv {
	env, ok := ctx.Value(runtimeKey{}).(runtimeEnv)
	if !ok {
		panic("cli: command run outside Execute")
	}
	return env
}

func getConfigFromContext(ctx context.Context) *config.Config { return runtimeFrom(ctx).cfg }

func getLoggerFromContext(ctx context.Context) *errors.Logger { return runtimeFrom(ctx).logger }

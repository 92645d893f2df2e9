package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"careerkit/internal/errors"
	"careerkit/internal/formatters"
	"careerkit/internal/types"
	"careerkit/internal/workflow"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	// OutputFile is where a document is written; empty selects OutputDir
	// joined with the artifact name.
	OutputFile string
	OutputDir  string
	// DocumentFormat is the artifact format, docx or pdf.
	DocumentFormat string
	// OutputFormat is the format of the summary printed after a command.
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	out           io.Writer
	logger        *errors.Logger
}

// NewOutputHandler creates a new output handler printing to stdout
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.NewFormatterRegistry(),
		out:           os.Stdout,
		logger:        logger,
	}
}

// SetOutput redirects printed output
func (oh *OutputHandler) SetOutput(w io.Writer) {
	oh.out = w
}

// HandleOutput formats data and prints it
func (oh *OutputHandler) HandleOutput(data any, format string) error {
	output, err := oh.registry.Format(data, format)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", format), err)
	}

	_, err = fmt.Fprint(oh.out, output)
	return err
}

// WriteArtifact stores a document on disk and prints where it went
func (oh *OutputHandler) WriteArtifact(artifact workflow.Artifact, config CommandConfig) (types.ArtifactOutput, error) {
	path := config.OutputFile
	if path == "" {
		path = filepath.Join(config.OutputDir, artifact.Name)
	}

	if err := oh.fileProcessor.WriteFile(path, artifact.Data); err != nil {
		return types.ArtifactOutput{}, err
	}

	oh.logger.Info("Output written successfully",
		"file", path, "format", artifact.Format)

	result := types.ArtifactOutput{
		Task:        artifactTask(artifact.Name),
		Path:        path,
		Format:      artifact.Format,
		ContentType: artifact.ContentType,
		Size:        int64(len(artifact.Data)),
	}

	format := config.OutputFormat
	if format == "" {
		format = "text"
	}
	return result, oh.HandleOutput(result, format)
}

// GetSupportedFormats returns all supported summary formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}

// artifactTask recovers the task prefix of an artifact name.
func artifactTask(name string) string {
	for _, task := range []string{workflow.TaskCoverLetter, workflow.TaskFormattedResume, workflow.TaskCustomResume} {
		if len(name) > len(task) && name[:len(task)] == task {
			return task
		}
	}
	return "document"
}

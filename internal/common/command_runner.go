package common

import (
	"context"
	"fmt"
	"os"

	"careerkit/internal/errors"
	"careerkit/internal/types"
	"careerkit/internal/workflow"
)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc func(contents [][]byte, cfg CommandConfig)

// DocumentOperationFunc runs one workflow task over the read input files.
type DocumentOperationFunc func(ctx context.Context, contents [][]byte) (workflow.Artifact, error)

// RunDocumentCommand encapsulates the common logic for file-based document
// commands: read the inputs, run the task, write the artifact and report
// token usage.
func RunDocumentCommand(
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	operation DocumentOperationFunc,
	logDetails LogDetailsFunc,
) (types.ArtifactOutput, error) {
	return runDocumentCommand(ctx, logger, NewOutputHandler(logger), cmdConfig, args, operation, logDetails)
}

func runDocumentCommand(
	ctx context.Context,
	logger *errors.Logger,
	outputHandler *OutputHandler,
	cmdConfig CommandConfig,
	args []string,
	operation DocumentOperationFunc,
	logDetails LogDetailsFunc,
) (types.ArtifactOutput, error) {
	fileProcessor := NewFileProcessor(logger)

	contents, err := fileProcessor.ValidateAndReadFiles(args...)
	if err != nil {
		return types.ArtifactOutput{}, err
	}

	if logDetails != nil {
		logDetails(contents, cmdConfig)
	}

	artifact, err := operation(ctx, contents)
	if err != nil {
		return types.ArtifactOutput{}, err
	}

	if usage := artifact.Usage; usage != nil {
		if logger != nil {
			logger.Info("AI token usage", "input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens, "total_tokens", usage.TotalTokens)
		} else {
			fmt.Fprintf(os.Stderr, "AI token usage: input=%d, output=%d, total=%d\n", usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
		}
	}

	return outputHandler.WriteArtifact(artifact, cmdConfig)
}

package cli

import (
	"bytes"
	"fmt"
	"path/filepath"

	"careerkit/internal/classifier"
	"careerkit/internal/common"
	"careerkit/internal/document"
	"careerkit/internal/errors"
	"careerkit/internal/types"
	"careerkit/internal/utils"

	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Show the role assigned to each line of a document",
	Long: `Print the role the resume classifier assigns to every line of a .docx
or .pdf file. Use it to see why a line was rendered the way it was.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

var classifyFormat string

func init() {
	classifyCmd.Flags().StringVar(&classifyFormat, "format", "text", "Output format: text, markdown or json")
}

func runClassify(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	lines, err := classifyFile(common.NewFileProcessor(logger), args[0])
	if err != nil {
		return err
	}

	logger.Debug("Classified document", "file", args[0], "lines", len(lines))

	handler := common.NewOutputHandler(logger)
	handler.SetOutput(cmd.OutOrStdout())
	return handler.HandleOutput(types.ClassifyOutput{Source: filepath.Base(args[0]), Lines: lines}, classifyFormat)
}

// classifyFile reads the paragraphs of a .docx or the text of a .pdf and
// classifies them.
func classifyFile(fp *common.FileProcessor, path string) ([]classifier.Line, error) {
	data, err := fp.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch utils.GetFileExtension(path) {
	case ".docx":
		paragraphs, err := document.ExtractBytes(data)
		if err != nil {
			return nil, err
		}
		return classifier.Classify(paragraphs), nil
	case ".pdf":
		text, err := document.ExtractPDFText(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, err
		}
		return classifier.ClassifyText(text), nil
	default:
		return nil, errors.NewUnsupportedFormatError(
			fmt.Sprintf("Cannot classify %s: expected a .docx or .pdf file", filepath.Base(path)), nil)
	}
}

package common

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"careerkit/internal/errors"
	"careerkit/internal/utils"
)

// FileProcessor reads command inputs and writes generated documents,
// mapping filesystem failures to application errors.
type FileProcessor struct {
	logger *errors.Logger
}

func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile returns the contents of filename.
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		return data, nil
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "File not found: "+filename, err)
	default:
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Cannot read file: "+filename, err)
	}
}

// WriteFile replaces filename with content. The content goes to a
// temporary file in the same directory first and is renamed into place,
// so readers never see a partial document.
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE", "Invalid output file: "+filename, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write file: "+filename, err)
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !stderrors.Is(rmErr, fs.ErrNotExist) {
			fp.logger.Warn("Failed to remove temporary file", "file", tmp.Name(), "error", rmErr)
		}
	}()

	_, err = tmp.Write(content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filename)
	}
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write file: "+filename, err)
	}

	fp.logger.Debug("File written", "file", filename, "size", utils.FormatFileSize(int64(len(content))))
	return nil
}

// ValidateAndReadFiles reads every input in order. Each must be an
// existing .docx file.
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([][]byte, error) {
	contents := make([][]byte, 0, len(filenames))

	for _, filename := range filenames {
		if err := utils.ValidateInputFile(filename); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE", fmt.Sprintf("Invalid file %s", filename), err)
		}
		if !utils.IsAllowedUpload(filename, ".docx") {
			return nil, errors.NewUnsupportedFormatError(fmt.Sprintf("Please provide a .docx file: %s", filename), nil)
		}

		data, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		contents = append(contents, data)
	}

	return contents, nil
}

// Package storage manages the upload and output directories and the sink
// that generated documents are written to.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/utils"

	"github.com/google/uuid"
)

const probeFile = ".careerkit-write-probe"

// Workspace holds the directories used while processing requests.
type Workspace struct {
	UploadDir string
	OutputDir string
}

// NewWorkspace returns the workspace configured in app.
func NewWorkspace(app config.AppConfig) Workspace {
	return Workspace{UploadDir: app.UploadDir, OutputDir: app.OutputDir}
}

// Ensure creates both directories and checks that each is writable.
func (w Workspace) Ensure() error {
	for _, dir := range []string{w.UploadDir, w.OutputDir} {
		if dir == "" {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig, "workspace directory is not configured", nil)
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}

		probe := filepath.Join(dir, probeFile)
		if err := os.WriteFile(probe, []byte("ok"), 0600); err != nil {
			return errors.NewIOError("DIRECTORY_NOT_WRITABLE",
				fmt.Sprintf("Directory is not writable: %s", dir), err)
		}
		if err := os.Remove(probe); err != nil {
			return errors.NewIOError("DIRECTORY_NOT_WRITABLE",
				fmt.Sprintf("Cannot remove probe file in: %s", dir), err)
		}
	}
	return nil
}

// SaveUpload copies r into the upload directory under a request-scoped
// name and returns the written path.
func (w Workspace) SaveUpload(name string, r io.Reader) (string, error) {
	secure := utils.SecureFilename(name)
	if secure == "" {
		return "", errors.NewMissingInputError("No selected file")
	}

	path := filepath.Join(w.UploadDir, uuid.NewString()+"_"+secure)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", errors.NewIOError("FILE_WRITE_FAILED", "Cannot save upload", err)
	}

	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", errors.NewIOError("FILE_WRITE_FAILED", "Cannot save upload", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.NewIOError("FILE_WRITE_FAILED", "Cannot save upload", err)
	}

	return path, nil
}

// Cleanup removes the given files. Failures are logged and otherwise
// ignored; empty paths are skipped.
func Cleanup(logger *errors.Logger, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Error cleaning up file", "path", path, "error", err)
		}
	}
}

package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"careerkit/internal/config"
	"careerkit/internal/errors"
)

// Store is the sink for generated documents.
type Store interface {
	// Put saves data under name and returns where it was written.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Get opens a stored document. A missing document is a NotFound error.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}

// NewStore returns the store selected by cfg.Backend.
func NewStore(ctx context.Context, cfg config.StorageConfig, outputDir string) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalStore(outputDir), nil
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported storage backend: %s", cfg.Backend), nil)
	}
}

// ContentTypeFor returns the MIME type for a stored document name.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".pdf":
		return "application/pdf"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// validName reports whether name is a single path element.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func notFound(name string) error {
	return errors.NewNotFoundError("File not found: "+name, nil)
}

// LocalStore keeps documents in a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	if !validName(name) {
		return "", errors.NewInternalError("INVALID_OUTPUT_NAME", fmt.Sprintf("invalid output name %q", name), nil)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("Cannot write file: %s", path), err)
	}
	return path, nil
}

func (s *LocalStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, notFound(name)
	}

	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(name)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("Cannot read file: %s", name), err)
	}

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		return nil, notFound(name)
	}
	return file, nil
}

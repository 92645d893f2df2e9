package formatters

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"careerkit/internal/document"
	apperrors "careerkit/internal/errors"
	"careerkit/internal/render"
)

// Writer serializes a rendered document in one output format.
type Writer interface {
	Write(ctx context.Context, w io.Writer, doc render.Document) error
	Extension() string
	ContentType() string
}

// Registry maps output format names to document writers.
type Registry struct {
	writers map[string]Writer
}

// NewRegistry creates an empty writer registry.
func NewRegistry() *Registry {
	return &Registry{writers: make(map[string]Writer)}
}

// NewDocumentRegistry creates a registry with the docx and pdf writers.
// The printer is passed to the pdf writer; nil selects headless Chrome.
func NewDocumentRegistry(printer document.Printer) *Registry {
	registry := NewRegistry()
	registry.Register("docx", document.NewDOCXWriter())
	registry.Register("pdf", document.NewPDFWriter(printer))
	return registry
}

// Register adds or replaces the writer for format.
func (r *Registry) Register(format string, writer Writer) {
	r.writers[strings.ToLower(format)] = writer
}

// Get returns the writer for format.
func (r *Registry) Get(format string) (Writer, error) {
	writer, ok := r.writers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, apperrors.NewUnsupportedFormatError(
			fmt.Sprintf("unsupported output format %q (supported: %s)", format, strings.Join(r.SupportedFormats(), ", ")), nil)
	}
	return writer, nil
}

// SupportedFormats returns the registered format names in sorted order.
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.writers))
	for format := range r.writers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

package common

import (
	"testing"

	"careerkit/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		supported []string
		wantErr   string
	}{
		{name: "docx", format: "docx", supported: []string{"docx", "pdf"}},
		{name: "pdf", format: "pdf", supported: []string{"docx", "pdf"}},
		{name: "unknown", format: "odt", supported: []string{"docx", "pdf"}, wantErr: "unsupported output format 'odt'. Supported formats: docx, pdf"},
		{name: "case sensitive", format: "DOCX", supported: []string{"docx", "pdf"}, wantErr: "unsupported output format 'DOCX'"},
		{name: "empty", format: "", supported: []string{"docx"}, wantErr: "unsupported output format ''. Supported formats: docx"},
		{name: "no restriction", format: "odt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.True(t, errors.IsKind(err, errors.KindUnsupportedFormat))
		})
	}
}

func TestValidateSummaryFormat(t *testing.T) {
	for _, format := range []string{"text", "markdown", "json"} {
		assert.NoError(t, ValidateSummaryFormat(format), format)
	}
	assert.ErrorContains(t, ValidateSummaryFormat("yaml"), "unsupported summary format 'yaml'. Supported formats: json, markdown, text")
}

func TestCompleteFormats(t *testing.T) {
	supported := []string{"docx", "pdf"}
	assert.Equal(t, supported, CompleteFormats(supported, ""))
	assert.Equal(t, []string{"pdf"}, CompleteFormats(supported, "P"))
	assert.Empty(t, CompleteFormats(supported, "x"))
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supported := []string{"docx", "pdf"}

	b.Run("valid", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("docx", supported)
		}
	})

	b.Run("invalid", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("odt", supported)
		}
	})
}

package common

import (
	"fmt"
	"slices"
	"strings"

	"careerkit/internal/errors"
	"careerkit/internal/formatters"
)

// ValidateOutputFormat checks a document format against the configured
// list. An empty list allows any format the writer registry accepts.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || slices.Contains(supportedFormats, format) {
		return nil
	}
	return errors.NewUnsupportedFormatError(
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %s", format, strings.Join(supportedFormats, ", ")), nil)
}

// ValidateSummaryFormat checks a summary format against the formatters
// that can print it.
func ValidateSummaryFormat(format string) error {
	supported := formatters.NewFormatterRegistry().GetSupportedFormats()
	if slices.Contains(supported, format) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported summary format '%s'. Supported formats: %s", format, strings.Join(supported, ", ")), nil)
}

// CompleteFormats returns the supported formats that start with prefix,
// for shell completion.
func CompleteFormats(supportedFormats []string, prefix string) []string {
	var out []string
	for _, f := range supportedFormats {
		if strings.HasPrefix(f, strings.ToLower(prefix)) {
			out = append(out, f)
		}
	}
	return out
}

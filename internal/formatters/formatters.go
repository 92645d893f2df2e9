// Package formatters turns results into output: document writers for
// rendered artifacts and text formatters for command output.
package formatters

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"careerkit/internal/types"
)

// Formatter renders one kind of result in one output format.
type Formatter interface {
	Format(data any) (string, error)
}

// FormatterFunc adapts a typed function to Formatter.
type FormatterFunc[T any] func(T) (string, error)

func (f FormatterFunc[T]) Format(data any) (string, error) {
	v, ok := data.(T)
	if !ok {
		var want T
		return "", fmt.Errorf("expected %T, got %T", want, data)
	}
	return f(v)
}

// FormatterRegistry picks a formatter by output format and the dynamic
// type of the data. A formatter registered for a nil type handles any data.
type FormatterRegistry struct {
	formatters map[string]map[reflect.Type]Formatter
}

// NewFormatterRegistry returns a registry with json for every result and
// text and markdown for classification and artifact summaries.
func NewFormatterRegistry() *FormatterRegistry {
	fr := &FormatterRegistry{formatters: make(map[string]map[reflect.Type]Formatter)}

	fr.Register("json", nil, jsonFormatter{})
	fr.Register("text", reflect.TypeFor[types.ClassifyOutput](), FormatterFunc[types.ClassifyOutput](classifyText))
	fr.Register("markdown", reflect.TypeFor[types.ClassifyOutput](), FormatterFunc[types.ClassifyOutput](classifyMarkdown))
	for _, format := range []string{"text", "markdown"} {
		fr.Register(format, reflect.TypeFor[types.ArtifactOutput](), FormatterFunc[types.ArtifactOutput](artifactSummary))
	}
	return fr
}

// Register adds or replaces the formatter for format and dataType.
func (fr *FormatterRegistry) Register(format string, dataType reflect.Type, f Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[reflect.Type]Formatter)
	}
	fr.formatters[format][dataType] = f
}

// Format renders data in format.
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	byType := fr.formatters[format]
	if f, ok := byType[reflect.TypeOf(data)]; ok {
		return f.Format(data)
	}
	if f, ok := byType[nil]; ok {
		return f.Format(data)
	}
	return "", fmt.Errorf("no formatter found for format '%s' and type '%T'", format, data)
}

// GetSupportedFormats returns the registered format names, sorted.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	return slices.Sorted(maps.Keys(fr.formatters))
}

type jsonFormatter struct{}

func (jsonFormatter) Format(data any) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// classifyText prints one line per classified line, role first.
func classifyText(result types.ClassifyOutput) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n\n", result.Source)
	for _, line := range result.Lines {
		fmt.Fprintf(&b, "%-15s %s\n", line.Role, visible(line.Text))
	}
	fmt.Fprintf(&b, "\n%d lines classified\n", len(result.Lines))
	return b.String(), nil
}

// classifyMarkdown renders the classification as a table.
func classifyMarkdown(result types.ClassifyOutput) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n| # | Role | Text |\n|---|------|------|\n", result.Source)
	for i, line := range result.Lines {
		fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, line.Role, strings.ReplaceAll(visible(line.Text), "|", `\|`))
	}
	return b.String(), nil
}

// artifactSummary reports where a generated document was written.
func artifactSummary(result types.ArtifactOutput) (string, error) {
	return fmt.Sprintf("%s written to %s (%s, %d bytes)\n",
		strings.ReplaceAll(result.Task, "_", " "), result.Path, result.Format, result.Size), nil
}

// visible shows tabs and line breaks inside a single output line.
func visible(s string) string {
	return strings.NewReplacer("\t", `\t`, "\n", `\n`).Replace(s)
}

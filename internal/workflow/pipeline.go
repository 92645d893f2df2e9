// Package workflow runs the document tasks: extract the uploads, generate
// text when the task needs it, classify, render and write the result.
package workflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"careerkit/internal/ai"
	"careerkit/internal/classifier"
	"careerkit/internal/document"
	"careerkit/internal/errors"
	"careerkit/internal/formatters"
	"careerkit/internal/observability"
	"careerkit/internal/render"
	"careerkit/internal/types"
)

// Artifact name prefixes.
const (
	TaskCoverLetter     = observability.TaskCoverLetter
	TaskFormattedResume = observability.TaskFormattedResume
	TaskCustomResume    = observability.TaskCustomResume
)

// timestampLayout is the YYYYmmddHHMMSS suffix of artifact names.
const timestampLayout = "20060102150405"

// Generator produces the text of the generated documents.
type Generator interface {
	CoverLetter(ctx context.Context, in ai.CoverLetterInput) (string, *ai.TokenUsage, error)
	CustomResume(ctx context.Context, in ai.CustomResumeInput) (string, *ai.TokenUsage, error)
	McCombsResume(ctx context.Context, in ai.CustomResumeInput) (string, *ai.TokenUsage, error)
}

// Styles are the style tables used for both document kinds.
type Styles struct {
	Resume      render.StyleTable
	CoverLetter render.CoverLetterStyles
}

// DefaultStyles returns the built-in resume and cover-letter styles.
func DefaultStyles() Styles {
	return Styles{
		Resume:      render.DefaultResumeStyles(),
		CoverLetter: render.DefaultCoverLetterStyles(),
	}
}

// Artifact is one written document.
type Artifact struct {
	Name        string
	Format      string
	ContentType string
	Data        []byte
	Usage       *ai.TokenUsage
}

// Pipeline runs document tasks. Generator may be nil when only
// ReformatResume is used.
type Pipeline struct {
	generator     Generator
	registry      *formatters.Registry
	styles        Styles
	clock         func() time.Time
	defaultFormat string
	obs           *observability.ObservabilityManager
	logger        *errors.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStyles replaces the default style tables.
func WithStyles(styles Styles) Option {
	return func(p *Pipeline) { p.styles = styles }
}

// WithClock sets the time source used for artifact names and letter dates.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) { p.clock = clock }
}

// WithDefaultFormat sets the format used when a request names none.
func WithDefaultFormat(format string) Option {
	return func(p *Pipeline) { p.defaultFormat = format }
}

// WithObservability records generation and document metrics.
func WithObservability(om *observability.ObservabilityManager) Option {
	return func(p *Pipeline) { p.obs = om }
}

// New creates a pipeline writing through registry.
func New(generator Generator, registry *formatters.Registry, logger *errors.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator:     generator,
		registry:      registry,
		styles:        DefaultStyles(),
		clock:         time.Now,
		defaultFormat: "docx",
		logger:        logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReformatResume re-renders a resume upload through the classifier
// without generating any text.
func (p *Pipeline) ReformatResume(ctx context.Context, src []byte, format string) (Artifact, error) {
	writer, format, err := p.writer(format)
	if err != nil {
		return Artifact{}, err
	}

	paragraphs, err := extract("resume", src)
	if err != nil {
		return Artifact{}, err
	}

	lines := classifier.Classify(paragraphs)
	p.logger.Debug("Classified resume", "lines", len(lines))

	doc := render.RenderResume(lines, p.styles.Resume)
	return p.write(ctx, TaskFormattedResume, writer, format, doc, nil)
}

// GenerateCoverLetter extracts both uploads, generates the letter body
// and fills the letter template.
func (p *Pipeline) GenerateCoverLetter(ctx context.Context, req types.CoverLetterRequest, jd, resume []byte, format string) (Artifact, error) {
	if err := req.Validate(); err != nil {
		return Artifact{}, err
	}
	writer, format, err := p.writer(format)
	if err != nil {
		return Artifact{}, err
	}

	jdText, resumeText, err := extractPair(jd, resume)
	if err != nil {
		return Artifact{}, err
	}

	in := ai.CoverLetterInput{
		UserName:       req.UserName,
		JobTitle:       req.JobTitle,
		CompanyName:    req.CompanyName,
		JobDescription: jdText,
		Resume:         resumeText,
	}

	body, usage, err := p.generate(ctx, TaskCoverLetter, func(ctx context.Context) (string, *ai.TokenUsage, error) {
		return p.generator.CoverLetter(ctx, in)
	})
	if err != nil {
		return Artifact{}, err
	}

	var doc render.Document
	if req.Layout == types.LayoutPlain {
		doc = render.RenderPlain(body)
	} else {
		doc = render.RenderCoverLetter(render.CoverLetter{
			Name:    req.UserName,
			Email:   req.Email,
			Phone:   req.Phone,
			GitHub:  req.GitHub,
			Address: req.Address,
			Company: req.CompanyName,
			Body:    body,
			Date:    p.clock(),
		}, p.styles.CoverLetter)
	}

	return p.write(ctx, TaskCoverLetter, writer, format, doc, usage)
}

// CustomizeResume rewrites a resume for a job description and renders the
// generated text as a resume.
func (p *Pipeline) CustomizeResume(ctx context.Context, resume, jd []byte, format string) (Artifact, error) {
	return p.customize(ctx, resume, jd, format, func(g Generator) resumeTask { return g.CustomResume })
}

// CustomizeResumeStrict is CustomizeResume with the strict McCombs section
// template prompt.
func (p *Pipeline) CustomizeResumeStrict(ctx context.Context, resume, jd []byte, format string) (Artifact, error) {
	return p.customize(ctx, resume, jd, format, func(g Generator) resumeTask { return g.McCombsResume })
}

type resumeTask func(context.Context, ai.CustomResumeInput) (string, *ai.TokenUsage, error)

func (p *Pipeline) customize(ctx context.Context, resume, jd []byte, format string, task func(Generator) resumeTask) (Artifact, error) {
	writer, format, err := p.writer(format)
	if err != nil {
		return Artifact{}, err
	}

	jdText, resumeText, err := extractPair(jd, resume)
	if err != nil {
		return Artifact{}, err
	}

	in := ai.CustomResumeInput{Resume: resumeText, JobDescription: jdText}
	text, usage, err := p.generate(ctx, TaskCustomResume, func(ctx context.Context) (string, *ai.TokenUsage, error) {
		return task(p.generator)(ctx, in)
	})
	if err != nil {
		return Artifact{}, err
	}

	lines := classifier.ClassifyText(text)
	if len(lines) == 0 {
		return Artifact{}, errors.NewGenerationError("Model returned a resume without content", nil)
	}

	doc := render.RenderResume(lines, p.styles.Resume)
	return p.write(ctx, TaskCustomResume, writer, format, doc, usage)
}

func (p *Pipeline) writer(format string) (formatters.Writer, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = p.defaultFormat
	}

	writer, err := p.registry.Get(format)
	if err != nil {
		return nil, "", err
	}
	return writer, format, nil
}

func (p *Pipeline) generate(ctx context.Context, task string, fn func(context.Context) (string, *ai.TokenUsage, error)) (string, *ai.TokenUsage, error) {
	if p.generator == nil {
		return "", nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "text generation is not configured", nil)
	}

	var (
		text  string
		usage *ai.TokenUsage
	)
	err := p.obs.TrackGeneration(ctx, task, func(ctx context.Context) (*observability.TokenUsage, error) {
		var err error
		text, usage, err = fn(ctx)
		return toObservabilityUsage(usage), err
	})
	if err != nil {
		return "", usage, err
	}

	if usage != nil {
		p.logger.Info("AI token usage",
			"task", task,
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
			"total_tokens", usage.TotalTokens)
	}
	return text, usage, nil
}

func (p *Pipeline) write(ctx context.Context, task string, writer formatters.Writer, format string, doc render.Document, usage *ai.TokenUsage) (Artifact, error) {
	var buf bytes.Buffer
	err := writer.Write(ctx, &buf, doc)
	p.obs.RecordDocument(ctx, task, format, err == nil)
	if err != nil {
		if errors.IsKind(err, errors.KindRender) {
			return Artifact{}, err
		}
		return Artifact{}, errors.NewRenderError(fmt.Sprintf("failed to write %s document", format), err)
	}

	return Artifact{
		Name:        task + "_" + p.clock().Format(timestampLayout) + writer.Extension(),
		Format:      format,
		ContentType: writer.ContentType(),
		Data:        buf.Bytes(),
		Usage:       usage,
	}, nil
}

// extractPair extracts the job description and the resume, in that order,
// so that a bad upload fails before any generation call.
func extractPair(jd, resume []byte) (string, string, error) {
	jdText, err := extractText("job_description", jd)
	if err != nil {
		return "", "", err
	}
	resumeText, err := extractText("resume", resume)
	if err != nil {
		return "", "", err
	}
	return jdText, resumeText, nil
}

func extractText(input string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", missingUpload(input)
	}

	text, err := document.ExtractText(data)
	if err != nil {
		return "", withInput(err, input)
	}
	if strings.TrimSpace(text) == "" {
		return "", noText(input)
	}
	return text, nil
}

// extract keeps paragraph boundaries, which the classifier relies on.
func extract(input string, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, missingUpload(input)
	}

	paragraphs, err := document.ExtractBytes(data)
	if err != nil {
		return nil, withInput(err, input)
	}
	if strings.TrimSpace(strings.Join(paragraphs, "")) == "" {
		return nil, noText(input)
	}
	return paragraphs, nil
}

func missingUpload(input string) error {
	return errors.NewMissingInputError(fmt.Sprintf("Missing required file: %s", input))
}

func noText(input string) error {
	return errors.NewExtractionError(fmt.Sprintf("No text found in %s", input), nil)
}

func withInput(err error, input string) error {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.WithContext("input", input)
	}
	return err
}

func toObservabilityUsage(usage *ai.TokenUsage) *observability.TokenUsage {
	if usage == nil {
		return nil
	}
	return &observability.TokenUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
	}
}

package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"careerkit/internal/config"
	"careerkit/internal/errors"
)

// Task names used for breakers, logs and metrics.
const (
	TaskCoverLetter  = "cover_letter"
	TaskCustomResume = "custom_resume"
)

// Service builds task prompts and sends them to the configured generators
type Service struct {
	coverLetter Generator
	resume      Generator
	prompts     *PromptSet
	logger      *errors.Logger
}

// NewGenerator creates the provider selected by cfg.Provider
func NewGenerator(cfg config.OperationAIConfig, task string, logger *errors.Logger) (Generator, error) {
	logger.Debug("Initializing AI generator",
		"provider", cfg.Provider,
		"task", task,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries)

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg, task, logger)
	case "openai":
		return NewOpenAIProvider(cfg, task, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// NewService creates generators for both tasks from the application config
func NewService(cfg *config.Config, logger *errors.Logger) (*Service, error) {
	prompts, err := NewPromptSet(cfg.Prompts())
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid prompt template", err)
	}

	coverLetter, err := NewGenerator(cfg.GetCoverLetterConfig(), TaskCoverLetter, logger)
	if err != nil {
		return nil, err
	}

	resume, err := NewGenerator(cfg.GetCustomResumeConfig(), TaskCustomResume, logger)
	if err != nil {
		_ = coverLetter.Close()
		return nil, err
	}

	return NewServiceWithGenerators(coverLetter, resume, prompts, logger), nil
}

// NewServiceWithGenerators assembles a service from existing generators
func NewServiceWithGenerators(coverLetter, resume Generator, prompts *PromptSet, logger *errors.Logger) *Service {
	return &Service{
		coverLetter: coverLetter,
		resume:      resume,
		prompts:     prompts,
		logger:      logger,
	}
}

// CoverLetter generates the body of a cover letter. The salutation and
// closing are stripped because the renderer adds its own.
func (s *Service) CoverLetter(ctx context.Context, in CoverLetterInput) (string, *TokenUsage, error) {
	if strings.TrimSpace(in.Resume) == "" || strings.TrimSpace(in.JobDescription) == "" {
		return "", nil, errors.NewMissingInputError("Both job description and resume are required")
	}

	text, usage, err := s.run(ctx, s.coverLetter, config.PromptCoverLetter, in)
	if err != nil {
		return "", usage, err
	}

	body := TrimLetterFrame(text)
	if body == "" {
		return "", usage, errors.NewGenerationError("Model returned a cover letter without a body", nil)
	}
	return body, usage, nil
}

// CustomResume rewrites a resume for a job description in McCombs format.
func (s *Service) CustomResume(ctx context.Context, in CustomResumeInput) (string, *TokenUsage, error) {
	return s.resumeTask(ctx, config.PromptCustomResume, in)
}

// McCombsResume rewrites a resume with the strict McCombs section template.
func (s *Service) McCombsResume(ctx context.Context, in CustomResumeInput) (string, *TokenUsage, error) {
	return s.resumeTask(ctx, config.PromptMcCombsResume, in)
}

func (s *Service) resumeTask(ctx context.Context, task string, in CustomResumeInput) (string, *TokenUsage, error) {
	if strings.TrimSpace(in.Resume) == "" {
		return "", nil, errors.NewMissingInputError("Resume text is required")
	}
	if strings.TrimSpace(in.JobDescription) == "" {
		return "", nil, errors.NewMissingInputError("Job description text is required")
	}
	return s.run(ctx, s.resume, task, in)
}

func (s *Service) run(ctx context.Context, generator Generator, task string, data any) (string, *TokenUsage, error) {
	prompt, err := s.prompts.Render(task, data)
	if err != nil {
		return "", nil, errors.NewGenerationError("Failed to build prompt", err)
	}

	s.logger.Debug("Sending generation request", "task", task, "prompt_length", len(prompt))

	text, usage, err := generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.LogError(err, "Generation failed", "task", task)
		if errors.IsKind(err, errors.KindGeneration) {
			return "", usage, err
		}
		return "", usage, errors.NewGenerationError("Failed to generate "+task, err)
	}

	text = CleanCompletion(text)
	if text == "" {
		return "", usage, errors.NewGenerationError("Model returned an empty completion", nil)
	}
	return text, usage, nil
}

// ModelInfo reports the model behind each task, for health checks
func (s *Service) ModelInfo(ctx context.Context) map[string]*ModelInfo {
	return map[string]*ModelInfo{
		TaskCoverLetter:  s.coverLetter.ModelInfo(ctx),
		TaskCustomResume: s.resume.ModelInfo(ctx),
	}
}

type breakerStats interface {
	CircuitBreakerStats() map[string]any
}

// CircuitBreakerStats returns breaker statistics of generators that keep them
func (s *Service) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any)
	if b, ok := s.coverLetter.(breakerStats); ok {
		stats[TaskCoverLetter] = b.CircuitBreakerStats()
	}
	if b, ok := s.resume.(breakerStats); ok {
		stats[TaskCustomResume] = b.CircuitBreakerStats()
	}
	return stats
}

// Close releases both generators
func (s *Service) Close() error {
	err := s.coverLetter.Close()
	if resumeErr := s.resume.Close(); err == nil {
		err = resumeErr
	}
	return err
}

var (
	salutationPattern = regexp.MustCompile(`(?i)^dear\b[^\n]*,?$`)
	closingPattern    = regexp.MustCompile(`(?i)^(sincerely|best regards|kind regards|regards|respectfully|yours (truly|sincerely)),?`)
)

// TrimLetterFrame removes a leading salutation paragraph and a trailing
// closing paragraph from generated letter text.
func TrimLetterFrame(text string) string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")

	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}

	if len(kept) > 0 {
		first := kept[0]
		line, rest, _ := strings.Cut(first, "\n")
		if salutationPattern.MatchString(strings.TrimSpace(line)) {
			if rest = strings.TrimSpace(rest); rest != "" {
				kept[0] = rest
			} else {
				kept = kept[1:]
			}
		}
	}

	if n := len(kept); n > 0 && closingPattern.MatchString(kept[n-1]) {
		kept = kept[:n-1]
	}

	return strings.Join(kept, "\n\n")
}

package ai

import (
	"context"
	"errors"

	"careerkit/internal/config"
	apperrors "careerkit/internal/errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider generates with any OpenAI-compatible chat completion
// endpoint, such as Groq.
type OpenAIProvider struct {
	guard[*openai.ChatCompletion, *openai.Model]
	client openai.Client
}

var _ Generator = (*OpenAIProvider)(nil)

func NewOpenAIProvider(cfg config.OperationAIConfig, task string, logger *apperrors.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey, "OpenAI-compatible provider requires an API key", nil)
	}

	// retries are ours, behind the breaker
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout != nil && *cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(*cfg.Timeout))
	}

	return &OpenAIProvider{
		guard:  newGuard[*openai.ChatCompletion, *openai.Model]("openai", task, cfg, isRetryableOpenAIError, logger),
		client: openai.NewClient(opts...),
	}, nil
}

// Generate sends prompt as a single user message.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if o.cfg.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.cfg.Temperature))
	}
	if o.cfg.TopP != nil {
		params.TopP = openai.Float(float64(*o.cfg.TopP))
	}
	if o.cfg.MaxOutputTokens != nil {
		params.MaxTokens = openai.Int(int64(*o.cfg.MaxOutputTokens))
	}

	return o.generate(ctx, prompt,
		func(ctx context.Context) (*openai.ChatCompletion, error) {
			return o.client.Chat.Completions.New(ctx, params)
		},
		func(c *openai.ChatCompletion) (string, *TokenUsage) {
			usage := &TokenUsage{
				InputTokens:  c.Usage.PromptTokens,
				OutputTokens: c.Usage.CompletionTokens,
				TotalTokens:  c.Usage.TotalTokens,
			}
			if len(c.Choices) == 0 {
				return "", usage
			}
			return c.Choices[0].Message.Content, usage
		})
}

func (o *OpenAIProvider) ModelInfo(ctx context.Context) *ModelInfo {
	return o.modelInfo(ctx,
		func(ctx context.Context) (*openai.Model, error) {
			return o.client.Models.Get(ctx, o.cfg.Model)
		},
		func(m *openai.Model, info *ModelInfo) {
			info.DisplayName = m.ID
			info.Version = m.OwnedBy
		})
}

// Close is a no-op: the client shares the default transport.
func (o *OpenAIProvider) Close() error { return nil }

func isRetryableOpenAIError(err error) bool {
	return isTransient(err, func(err error) (int, bool) {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return apiErr.StatusCode, true
		}
		return 0, false
	})
}

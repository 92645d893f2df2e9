package ai

import (
	"context"
	"errors"

	"careerkit/internal/config"
	apperrors "careerkit/internal/errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider generates with the Gemini API through the genai SDK.
type GeminiProvider struct {
	guard[*genai.GenerateContentResponse, *genai.Model]
	client *genai.Client
}

var _ Generator = (*GeminiProvider)(nil)

func NewGeminiProvider(cfg config.OperationAIConfig, task string, logger *apperrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		guard:  newGuard[*genai.GenerateContentResponse, *genai.Model]("gemini", task, cfg, isRetryableGeminiError, logger),
		client: client,
	}, nil
}

// Generate sends prompt as a single user turn.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, *TokenUsage, error) {
	params := &genai.GenerateContentConfig{
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
	}
	if g.cfg.MaxOutputTokens != nil {
		params.MaxOutputTokens = *g.cfg.MaxOutputTokens
	}

	return g.generate(ctx, prompt,
		func(ctx context.Context) (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), params)
		},
		func(resp *genai.GenerateContentResponse) (string, *TokenUsage) {
			return resp.Text(), geminiUsage(resp)
		})
}

func (g *GeminiProvider) ModelInfo(ctx context.Context) *ModelInfo {
	return g.modelInfo(ctx,
		func(ctx context.Context) (*genai.Model, error) {
			return g.client.Models.Get(ctx, g.cfg.Model, &genai.GetModelConfig{})
		},
		func(m *genai.Model, info *ModelInfo) {
			info.DisplayName = m.DisplayName
			info.Version = m.Version
		})
}

// Close is a no-op: the genai client holds no per-provider resources.
func (g *GeminiProvider) Close() error { return nil }

func isRetryableGeminiError(err error) bool {
	return isTransient(err, func(err error) (int, bool) {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return apiErr.Code, true
		}
		return 0, false
	})
}

func geminiUsage(resp *genai.GenerateContentResponse) *TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	u := resp.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(u.PromptTokenCount),
		OutputTokens: int64(u.CandidatesTokenCount),
		TotalTokens:  int64(u.TotalTokenCount),
	}
}

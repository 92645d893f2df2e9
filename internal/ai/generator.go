// Package ai wraps text-generation providers behind a single prompt-in,
// completion-out interface and builds the prompts for each document task.
package ai

import (
	"context"
	"strings"
)

// Generator produces one completion for one fully-formed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, *TokenUsage, error)
	ModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// CleanCompletion strips a surrounding markdown code fence, with or without
// a language tag, and trims whitespace.
func CleanCompletion(text string) string {
	clean := strings.TrimSpace(text)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}

	clean = strings.TrimPrefix(clean, "```")
	if newline := strings.IndexAny(clean, "\r\n"); newline >= 0 && !strings.ContainsAny(clean[:newline], " \t") {
		clean = clean[newline:]
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")

	return strings.TrimSpace(clean)
}

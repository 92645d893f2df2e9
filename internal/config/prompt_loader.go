package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Prompt task names.
const (
	PromptCoverLetter   = "coverLetter"
	PromptCustomResume  = "customResume"
	PromptMcCombsResume = "mccombsResume"
)

// LoadedPrompts holds prompt templates resolved from files or inline config.
// An empty field means the built-in prompt is used.
type LoadedPrompts struct {
	CoverLetter   string
	CustomResume  string
	McCombsResume string
}

// Get returns the loaded prompt for a task name.
func (p LoadedPrompts) Get(task string) string {
	switch task {
	case PromptCoverLetter:
		return p.CoverLetter
	case PromptCustomResume:
		return p.CustomResume
	case PromptMcCombsResume:
		return p.McCombsResume
	default:
		return ""
	}
}

// Prompts returns the prompt overrides resolved by LoadConfig.
func (c *Config) Prompts() LoadedPrompts {
	return c.prompts
}

// loadPromptsFromFiles resolves each prompt override, file first, then inline config
func (c *Config) loadPromptsFromFiles() error {
	prompts := c.AI.CustomPrompts
	var err error

	if c.prompts.CoverLetter, err = c.resolvePrompt(PromptCoverLetter, prompts.CoverLetterFile, prompts.CoverLetter); err != nil {
		return err
	}
	if c.prompts.CustomResume, err = c.resolvePrompt(PromptCustomResume, prompts.CustomResumeFile, prompts.CustomResume); err != nil {
		return err
	}
	if c.prompts.McCombsResume, err = c.resolvePrompt(PromptMcCombsResume, prompts.McCombsResumeFile, prompts.McCombsResume); err != nil {
		return err
	}
	return nil
}

func (c *Config) resolvePrompt(task, file, inline string) (string, error) {
	if file != "" {
		content, err := loadPromptFromFile(file, task)
		if err != nil {
			return "", err
		}
		log.Printf("[CONFIG] Prompt %s loaded from file: %s", task, file)
		return content, nil
	}
	if inline = strings.TrimSpace(inline); inline != "" {
		log.Printf("[CONFIG] Prompt %s loaded from config", task)
		return inline, nil
	}
	return "", nil
}

// loadPromptFromFile reads a prompt template and rejects empty files
func loadPromptFromFile(filePath, task string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path for %s prompt file %s: %w", task, filePath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("%s prompt file %s: %w", task, absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s prompt file %s is a directory", task, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt file %s: %w", task, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s prompt file %s is empty", task, absPath)
	}

	return trimmed, nil
}

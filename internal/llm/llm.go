// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm sends rendered prompts to a chat model and returns the raw
// text reply. Backends wrap the provider SDKs behind ChatModel so tests and
// the enhance pipeline never depend on a specific provider.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-enhance/internal/prompt"
	"github.com/pdiddy/paper-enhance/pkg/types"
)

// ChatModel completes one system + user exchange.
type ChatModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// PromptInvoker renders the prompt templates for a record and asks the chat
// model for a reply.
type PromptInvoker struct {
	Prompts *prompt.Pair
	Model   ChatModel
}

// NewPromptInvoker pairs templates with a chat model.
func NewPromptInvoker(prompts *prompt.Pair, model ChatModel) *PromptInvoker {
	return &PromptInvoker{Prompts: prompts, Model: model}
}

// Invoke renders the templates with language and content and returns the
// model's raw reply.
func (p *PromptInvoker) Invoke(ctx context.Context, language, content string) (string, error) {
	system, human, err := p.Prompts.Render(language, content)
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	reply, err := p.Model.Complete(ctx, system, human)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", p.Model.Name(), err)
	}
	return reply, nil
}

// NewChatModel builds the backend selected by cfg.Provider.
func NewChatModel(ctx context.Context, cfg types.AIConfig) (ChatModel, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model name is empty")
	}
	switch NormalizeProvider(cfg.Provider) {
	case types.ProviderOpenAI, "":
		return NewOpenAIModel(cfg), nil
	case types.ProviderAnthropic:
		return NewAnthropicModel(cfg), nil
	case types.ProviderGemini:
		return NewGeminiModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider %q: use openai, anthropic or gemini", cfg.Provider)
	}
}

// NormalizeProvider lowercases p and maps common aliases (deepseek, claude,
// google) onto the backend that serves them.
func NormalizeProvider(p types.Provider) types.Provider {
	s := strings.ToLower(strings.TrimSpace(string(p)))
	switch s {
	case "openai-compatible", "deepseek":
		return types.ProviderOpenAI
	case "claude":
		return types.ProviderAnthropic
	case "google":
		return types.ProviderGemini
	}
	return types.Provider(s)
}

func maxTokens(cfg types.AIConfig) int64 {
	if cfg.MaxTokens <= 0 {
		return types.DefaultMaxTokens
	}
	return int64(cfg.MaxTokens)
}

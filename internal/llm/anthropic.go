// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// AnthropicModel calls the Anthropic Messages API.
type AnthropicModel struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicModel builds the client. An empty APIKey falls back to the
// SDK's ANTHROPIC_API_KEY environment handling.
func NewAnthropicModel(cfg types.AIConfig, extra ...option.RequestOption) *AnthropicModel {
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	opts = append(opts, extra...)

	return &AnthropicModel{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens(cfg),
	}
}

// Name identifies the backend in log lines.
func (m *AnthropicModel) Name() string { return "anthropic:" + m.model }

// Complete sends one user turn with the system prompt and joins the text blocks
// of the reply.
func (m *AnthropicModel) Complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		full.WriteString(block.Text)
	}
	if full.Len() == 0 {
		return "", errors.New("empty response: no text content")
	}
	return full.String(), nil
}

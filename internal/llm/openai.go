// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// OpenAIModel calls an OpenAI-compatible Chat Completions endpoint. With
// BaseURL pointed at https://api.deepseek.com it serves deepseek-chat.
type OpenAIModel struct {
	client openai.Client
	model  string
}

// NewOpenAIModel builds the client. Empty APIKey and BaseURL fall back to
// the SDK's OPENAI_API_KEY and OPENAI_BASE_URL environment handling.
func NewOpenAIModel(cfg types.AIConfig, extra ...option.RequestOption) *OpenAIModel {
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

	return &OpenAIModel{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Name identifies the backend in log lines.
func (m *OpenAIModel) Name() string { return "openai:" + m.model }

// Complete sends the system and user messages and returns the first choice.
func (m *OpenAIModel) Complete(ctx context.Context, system, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.model),
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// GeminiModel calls the Gemini API through the genai client.
type GeminiModel struct {
	cli   *genai.Client
	model string
}

// NewGeminiModel builds the client. An empty APIKey falls back to the
// GEMINI_API_KEY / GOOGLE_API_KEY environment handling of genai.
func NewGeminiModel(ctx context.Context, cfg types.AIConfig) (*GeminiModel, error) {
	return newGeminiModel(ctx, cfg, nil)
}

func newGeminiModel(ctx context.Context, cfg types.AIConfig, httpClient *http.Client) (*GeminiModel, error) {
	cc := &genai.ClientConfig{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(base, "/") + "/"}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiModel{cli: cli, model: cfg.Model}, nil
}

// Name identifies the backend in log lines.
func (g *GeminiModel) Name() string { return "gemini:" + g.model }

// Complete sends the user text with the system instruction and concatenates
// the text parts of the first candidate.
func (g *GeminiModel) Complete(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{}
	if strings.TrimSpace(system) != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: user}}}},
		config,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response: no candidates")
	}

	var full strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		full.WriteString(part.Text)
	}
	if full.Len() == 0 {
		return "", errors.New("empty response: no text parts")
	}
	return full.String(), nil
}

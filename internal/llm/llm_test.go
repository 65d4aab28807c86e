// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-enhance/internal/prompt"
	"github.com/pdiddy/paper-enhance/pkg/types"
)

// --- fake chat model ---

type fakeChatModel struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeChatModel) Complete(_ context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.reply, f.err
}

func (f *fakeChatModel) Name() string { return "fake" }

func testPrompts(t *testing.T) *prompt.Pair {
	t.Helper()
	system, err := prompt.Parse("system", "Summarize in {language}.")
	require.NoError(t, err)
	human, err := prompt.Parse("human", "Paper: {content}")
	require.NoError(t, err)
	return &prompt.Pair{System: system, Human: human}
}

func TestPromptInvoker(t *testing.T) {
	model := &fakeChatModel{reply: `{"tldr":"A"}`}
	inv := NewPromptInvoker(testPrompts(t), model)

	got, err := inv.Invoke(context.Background(), "Chinese", "Text")
	require.NoError(t, err)
	assert.Equal(t, `{"tldr":"A"}`, got)
	assert.Equal(t, "Summarize in Chinese.", model.lastSystem)
	assert.Equal(t, "Paper: Text", model.lastUser)
}

func TestPromptInvokerError(t *testing.T) {
	boom := errors.New("connection reset")
	inv := NewPromptInvoker(testPrompts(t), &fakeChatModel{err: boom})

	_, err := inv.Invoke(context.Background(), "Chinese", "Text")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "calling fake")
}

func TestNewChatModel(t *testing.T) {
	tests := []struct {
		name     string
		provider types.Provider
		wantName string
		wantErr  bool
	}{
		{name: "default is openai", provider: "", wantName: "openai:m"},
		{name: "openai", provider: types.ProviderOpenAI, wantName: "openai:m"},
		{name: "deepseek alias", provider: "DeepSeek", wantName: "openai:m"},
		{name: "anthropic", provider: types.ProviderAnthropic, wantName: "anthropic:m"},
		{name: "claude alias", provider: "claude", wantName: "anthropic:m"},
		{name: "gemini", provider: types.ProviderGemini, wantName: "gemini:m"},
		{name: "unknown", provider: "mystery", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewChatModel(context.Background(), types.AIConfig{
				Provider: tt.provider,
				Model:    "m",
				APIKey:   "test-key",
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, m.Name())
		})
	}
}

func TestNewChatModelRequiresModel(t *testing.T) {
	_, err := NewChatModel(context.Background(), types.AIConfig{Model: "  "})
	assert.Error(t, err)
}

// --- SDK backends against local servers ---

func TestOpenAIModelComplete(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "deepseek-chat",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Here is the result:\n{\"tldr\":\"A\"}"}
			}]
		}`)
	}))
	defer srv.Close()

	m := NewOpenAIModel(types.AIConfig{
		Model:   "deepseek-chat",
		APIKey:  "sk-test",
		BaseURL: srv.URL,
	})

	got, err := m.Complete(context.Background(), "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, "Here is the result:\n{\"tldr\":\"A\"}", got)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "deepseek-chat", gotBody["model"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIModelServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	m := NewOpenAIModel(types.AIConfig{Model: "x", APIKey: "sk-test", BaseURL: srv.URL})
	_, err := m.Complete(context.Background(), "", "user")
	require.Error(t, err)
}

func TestOpenAIModelNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c","object":"chat.completion","created":1,"model":"x","choices":[]}`)
	}))
	defer srv.Close()

	m := NewOpenAIModel(types.AIConfig{Model: "x", APIKey: "sk-test", BaseURL: srv.URL})
	_, err := m.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestAnthropicModelComplete(t *testing.T) {
	var gotBody map[string]any
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [
				{"type": "text", "text": "{\"tldr\":"},
				{"type": "text", "text": "\"A\"}"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	m := NewAnthropicModel(types.AIConfig{
		Model:     "claude-test",
		APIKey:    "ak-test",
		BaseURL:   srv.URL,
		MaxTokens: 512,
	})

	got, err := m.Complete(context.Background(), "be terse", "paper")
	require.NoError(t, err)
	assert.Equal(t, `{"tldr":"A"}`, got)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "ak-test", gotKey)
	assert.Equal(t, "claude-test", gotBody["model"])
	assert.EqualValues(t, 512, gotBody["max_tokens"])
	assert.NotNil(t, gotBody["system"])
}

func TestGeminiModelComplete(t *testing.T) {
	var gotPath string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"tldr\":\"G\"}"}]}}]}`)
	}))
	defer srv.Close()

	m, err := newGeminiModel(context.Background(), types.AIConfig{
		Model:   "gemini-test",
		APIKey:  "gk-test",
		BaseURL: srv.URL,
	}, srv.Client())
	require.NoError(t, err)

	got, err := m.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"tldr":"G"}`, got)
	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-test:generateContent"), gotPath)
	assert.Contains(t, gotBody, "system prompt")
	assert.Contains(t, gotBody, "user prompt")
}

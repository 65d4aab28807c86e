// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/paper-enhance/internal/index"
	"github.com/pdiddy/paper-enhance/internal/llm"
	"github.com/pdiddy/paper-enhance/internal/secrets"
	"github.com/pdiddy/paper-enhance/pkg/types"
)

// Configuration keys. Keys with an environment binding are listed in envBindings.
const (
	keyModel           = "model"
	keyLanguage        = "language"
	keyProvider        = "provider"
	keyBaseURL         = "base_url"
	keyAnthropicURL    = "anthropic_base_url"
	keyGeminiURL       = "gemini_base_url"
	keyMaxTokens       = "max_tokens"
	keyMaxRetries      = "max_retries"
	keyOpenAIKey       = "openai_api_key"
	keyAnthropicKey    = "anthropic_api_key"
	keyGeminiKey       = "gemini_api_key"
	keyData            = "data"
	keySystem          = "system"
	keyTemplate        = "template"
	keyReport          = "report"
	keyIndexDB         = "index.db_path"
	keyIndexMaxResults = "index.max_results"
)

var envBindings = map[string]string{
	keyModel:        "MODEL_NAME",
	keyLanguage:     "LANGUAGE",
	keyProvider:     "MODEL_PROVIDER",
	keyBaseURL:      "OPENAI_BASE_URL",
	keyAnthropicURL: "ANTHROPIC_BASE_URL",
	keyGeminiURL:    "GEMINI_BASE_URL",
	keyMaxTokens:    "MAX_TOKENS",
	keyMaxRetries:   "MAX_RETRIES",
	keyOpenAIKey:    "OPENAI_API_KEY",
	keyAnthropicKey: "ANTHROPIC_API_KEY",
	keyGeminiKey:    "GEMINI_API_KEY",
}

var apiKeyKeys = map[types.Provider]string{
	types.ProviderOpenAI:    keyOpenAIKey,
	types.ProviderAnthropic: keyAnthropicKey,
	types.ProviderGemini:    keyGeminiKey,
}

// baseURLKeys scopes endpoint overrides to one provider, so an
// OPENAI_BASE_URL kept for DeepSeek is never sent to another backend.
var baseURLKeys = map[types.Provider]string{
	types.ProviderOpenAI:    keyBaseURL,
	types.ProviderAnthropic: keyAnthropicURL,
	types.ProviderGemini:    keyGeminiURL,
}

// configure installs defaults and environment bindings on v.
func configure(v *viper.Viper) {
	v.SetDefault(keyModel, types.DefaultModel)
	v.SetDefault(keyLanguage, types.DefaultLanguage)
	v.SetDefault(keyProvider, string(types.ProviderOpenAI))
	v.SetDefault(keyMaxTokens, types.DefaultMaxTokens)
	v.SetDefault(keyMaxRetries, types.DefaultMaxRetries)
	v.SetDefault(keySystem, types.DefaultSystemPath)
	v.SetDefault(keyTemplate, types.DefaultTemplatePath)
	v.SetDefault(keyIndexDB, index.DefaultDBPath)
	v.SetDefault(keyIndexMaxResults, 20)

	for key, env := range envBindings {
		v.BindEnv(key, env)
	}
}

// enhanceConfig assembles the run configuration. An API key set in the
// environment or config file wins over one loaded from the secrets directory.
func enhanceConfig(v *viper.Viper, keys secrets.Set) (types.EnhanceConfig, error) {
	provider := llm.NormalizeProvider(types.Provider(v.GetString(keyProvider)))
	if provider == "" {
		provider = types.ProviderOpenAI
	}

	apiKey := v.GetString(apiKeyKeys[provider])
	if apiKey == "" {
		apiKey = keys.APIKey(provider)
	}

	cfg := types.EnhanceConfig{
		AIConfig: types.AIConfig{
			Provider:   provider,
			Model:      orDefault(v.GetString(keyModel), types.DefaultModel),
			APIKey:     apiKey,
			BaseURL:    v.GetString(baseURLKeys[provider]),
			MaxTokens:  v.GetInt(keyMaxTokens),
			MaxRetries: v.GetInt(keyMaxRetries),
		},
		Language:     orDefault(v.GetString(keyLanguage), types.DefaultLanguage),
		DataPath:     v.GetString(keyData),
		SystemPath:   orDefault(v.GetString(keySystem), types.DefaultSystemPath),
		TemplatePath: orDefault(v.GetString(keyTemplate), types.DefaultTemplatePath),
		ReportPath:   v.GetString(keyReport),
	}
	if cfg.DataPath == "" {
		return cfg, fmt.Errorf("no input file: pass --data <file.jsonl>")
	}
	if _, ok := apiKeyKeys[provider]; !ok {
		return cfg, fmt.Errorf("unsupported model provider %q: use openai, anthropic or gemini", provider)
	}
	return cfg, nil
}

func indexConfig(v *viper.Viper) types.IndexConfig {
	return types.IndexConfig{
		DBPath:     v.GetString(keyIndexDB),
		MaxResults: v.GetInt(keyIndexMaxResults),
	}
}

// orDefault treats a set-but-blank value (e.g. MODEL_NAME= in .env) as unset.
func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

package types

// Provider identifies the chat completion backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Defaults applied when neither the environment nor the config file sets a value.
const (
	DefaultModel        = "deepseek-chat"
	DefaultLanguage     = "Chinese"
	DefaultSystemPath   = "system.txt"
	DefaultTemplatePath = "template.txt"
	DefaultMaxTokens    = 4096
	DefaultMaxRetries   = 2
)

// AIConfig holds settings for the chat model used to summarize records.
type AIConfig struct {
	// Provider selects the backend: openai, anthropic or gemini.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "deepseek-chat").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint, e.g. an OpenAI-compatible
	// gateway such as https://api.deepseek.com.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps the response length where the provider requires it.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is handed to the provider SDK's own transport retry.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EnhanceConfig holds settings for one enhance run.
type EnhanceConfig struct {
	AIConfig `yaml:",inline"`

	// Language is the natural language the summaries are written in.
	Language string `json:"language" yaml:"language"`

	// DataPath is the input JSONL file.
	DataPath string `json:"data_path" yaml:"data_path"`

	// SystemPath and TemplatePath are the system-role and human-role prompt files.
	SystemPath   string `json:"system_path" yaml:"system_path"`
	TemplatePath string `json:"template_path" yaml:"template_path"`

	// ReportPath, when set, receives a YAML summary of the run.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

// IndexConfig holds settings for the SQLite summary index.
type IndexConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

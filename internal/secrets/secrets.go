// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: openai-api-key, anthropic-api-key, gemini-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-enhance/pkg/types"
)

// DefaultDir is where the CLI looks for key files.
const DefaultDir = ".secrets/"

// keyFiles maps each provider to the secret file holding its API key.
var keyFiles = map[types.Provider]string{
	types.ProviderOpenAI:    "openai-api-key",
	types.ProviderAnthropic: "anthropic-api-key",
	types.ProviderGemini:    "gemini-api-key",
}

// Set is the loaded secrets, keyed by filename.
type Set map[string]string

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, logger *zap.Logger) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// APIKey returns the key file value for provider, or "" if none was loaded.
func (s Set) APIKey(provider types.Provider) string {
	name, ok := keyFiles[provider]
	if !ok {
		return ""
	}
	return s[name]
}

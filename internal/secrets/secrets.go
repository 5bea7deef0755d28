// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// Recognised key files.
const (
	GeminiAPIKey    = "gemini-api-key"
	AnthropicAPIKey = "anthropic-api-key"
	NCBIAPIKey      = "ncbi-api-key"
	NCBIEmail       = "ncbi-email"
	OpenFDAAPIKey   = "openfda-api-key"
)

// providerEnv names the conventional environment variable for each AI provider's key.
var providerEnv = map[types.AIProvider]string{
	types.ProviderGemini: "GEMINI_API_KEY",
	types.ProviderClaude: "ANTHROPIC_API_KEY",
}

// providerKey names the secret file for each AI provider's key.
var providerKey = map[types.AIProvider]string{
	types.ProviderGemini: GeminiAPIKey,
	types.ProviderClaude: AnthropicAPIKey,
}

// Set maps secret names to values.
type Set map[string]string

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty set.
// Unreadable files produce a warning on warn but do not abort.
func Load(dir string, warn io.Writer) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}
	if warn == nil {
		warn = io.Discard
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
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credentials that cfg leaves empty. Values already set by flags,
// config or PROTOCOL_ANALYZER_* variables win; then secret files; then the
// provider's conventional environment variable, read through getenv.
func (s Set) Apply(cfg *types.Config, getenv func(string) string) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	provider := cfg.AI.Provider
	if provider == "" {
		provider = types.ProviderGemini
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = s[providerKey[provider]]
	}
	if cfg.AI.APIKey == "" && providerEnv[provider] != "" {
		cfg.AI.APIKey = getenv(providerEnv[provider])
	}

	fill(&cfg.Research.NCBIAPIKey, s[NCBIAPIKey])
	fill(&cfg.Research.NCBIEmail, s[NCBIEmail])
	fill(&cfg.Research.OpenFDAAPIKey, s[OpenFDAAPIKey])
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

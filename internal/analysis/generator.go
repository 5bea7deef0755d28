// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// DefaultTimeout bounds one model call when the config leaves it unset.
const DefaultTimeout = 60 * time.Second

// NewGenerator builds the model backend selected by cfg.Provider. A missing
// API key is reported as ErrAIUnavailable.
func NewGenerator(cfg types.AIConfig) (Generator, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = types.ProviderGemini
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured for %s", ErrAIUnavailable, provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch provider {
	case types.ProviderGemini:
		return &GeminiBackend{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}, nil
	case types.ProviderClaude:
		return &ClaudeBackend{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

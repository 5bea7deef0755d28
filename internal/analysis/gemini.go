// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/protocol-analyzer/internal/httputil"
)

// geminiAPIURL is the Gemini models endpoint. Package-level var for test substitution.
var geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiBackend calls the Gemini generateContent REST method.
type GeminiBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends prompt as a single user turn and returns the text parts
// of the first candidate.
func (g *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	reqURL := fmt.Sprintf("%s/%s:generateContent", geminiAPIURL, url.PathEscape(model))

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	headers := map[string]string{"x-goog-api-key": g.APIKey}

	var resp geminiResponse
	if err := httputil.PostJSON(ctx, g.Client, "Gemini API", reqURL, headers, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		if r := resp.PromptFeedback.BlockReason; r != "" {
			return "", fmt.Errorf("Gemini API blocked the prompt: %s", r)
		}
		return "", errors.New("Gemini API returned no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("Gemini API returned empty content (finish reason %q)", resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

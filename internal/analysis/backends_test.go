// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/protocol-analyzer/internal/httputil"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

func withGeminiServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := geminiAPIURL
	geminiAPIURL = ts.URL + "/v1beta/models"
	t.Cleanup(func() {
		geminiAPIURL = old
		ts.Close()
	})
	return ts
}

func withClaudeServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
	return ts
}

func TestGeminiBackend_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	ts := withGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"protocolSummary\":"},{"text":"\"x\"}"}]},"finishReason":"STOP"}]}`))
	})

	g := &GeminiBackend{APIKey: "gk", Model: "gemini-1.5-flash", Client: ts.Client()}
	out, err := g.Generate(context.Background(), "prompt text")
	require.NoError(t, err)

	assert.Equal(t, `{"protocolSummary":"x"}`, out)
	assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", gotPath)
	assert.Equal(t, "gk", gotKey)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "prompt text", gotReq.Contents[0].Parts[0].Text)
}

func TestGeminiBackend_Blocked(t *testing.T) {
	ts := withGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	g := &GeminiBackend{APIKey: "gk", Client: ts.Client()}
	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGeminiBackend_StatusThroughExtractor(t *testing.T) {
	ts := withGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted"}}`))
	})

	e := NewExtractor(&GeminiBackend{APIKey: "gk", Client: ts.Client()}, nil)
	res, err := e.Analyze(context.Background(), "protocol")
	require.ErrorIs(t, err, ErrAIUnavailable)

	var se *httputil.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "exhausted")
}

func TestClaudeBackend_Generate(t *testing.T) {
	var gotReq claudeRequest
	var gotKey, gotVersion string
	ts := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"content":[{"type":"text","text":"Here: "},{"type":"tool_use"},{"type":"text","text":"{\"drugs\":[]}"}],"stop_reason":"end_turn"}`))
	})

	c := &ClaudeBackend{APIKey: "ak", Client: ts.Client()}
	out, err := c.Generate(context.Background(), "prompt text")
	require.NoError(t, err)

	assert.Equal(t, `Here: {"drugs":[]}`, out)
	assert.Equal(t, "ak", gotKey)
	assert.Equal(t, anthropicVersion, gotVersion)
	assert.Equal(t, DefaultClaudeModel, gotReq.Model)
	assert.Equal(t, claudeMaxTokens, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "prompt text", gotReq.Messages[0].Content)
}

func TestClaudeBackend_NoText(t *testing.T) {
	ts := withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	})

	c := &ClaudeBackend{APIKey: "ak", Client: ts.Client()}
	_, err := c.Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(types.AIConfig{APIKey: "k"})
	require.NoError(t, err)
	gb, ok := g.(*GeminiBackend)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, gb.Client.Timeout)

	g, err = NewGenerator(types.AIConfig{Provider: types.ProviderClaude, APIKey: "k", Model: "m", Timeout: time.Second})
	require.NoError(t, err)
	cb, ok := g.(*ClaudeBackend)
	require.True(t, ok)
	assert.Equal(t, "m", cb.Model)
	assert.Equal(t, time.Second, cb.Client.Timeout)

	_, err = NewGenerator(types.AIConfig{Provider: types.ProviderGemini})
	assert.ErrorIs(t, err, ErrAIUnavailable)

	_, err = NewGenerator(types.AIConfig{Provider: "llama", APIKey: "k"})
	assert.Error(t, err)
}

package gateway

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

	"github.com/sevigo/prompt-warden/internal/config"
	"github.com/sevigo/prompt-warden/internal/core"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.GatewayConfig{BaseURL: baseURL, Timeout: 5 * time.Second})
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, "Hello Ada!", req.Prompt)

		_ = json.NewEncoder(w).Encode(Response{
			Output: "Hi",
			Metrics: Metrics{
				ProcessingTimeMS: 42,
				TokensInput:      10,
				TokensOutput:     3,
			},
			Status: "ok",
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Generate(context.Background(), GenerateRequest{
		Model:  "gpt-4o",
		Prompt: "Hello Ada!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi", resp.Output)
	assert.Equal(t, int64(42), resp.Metrics.ProcessingTimeMS)
	assert.Equal(t, 3, resp.Metrics.TokensOutput)
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(Response{Output: "chat answer"})
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Chat(context.Background(), ChatRequest{
		Model: "gpt-4o",
		Messages: []core.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "chat answer", resp.Output)
}

func TestGatewayErrorPreservesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "rate limited"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)

	var ce *core.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, core.KindGatewayError, ce.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ce.UpstreamStatus)
	assert.Equal(t, "rate limited", ce.Message)
}

func TestGatewayErrorFallsBackToRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "plain text failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	require.Error(t, err)

	var ce *core.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, core.KindGatewayError, ce.Kind)
	assert.Contains(t, ce.Message, "plain text failure")
}

func TestGatewayUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Generate(context.Background(), GenerateRequest{Model: "m", Prompt: "p"})
	assert.Equal(t, core.KindGatewayUnavailable, core.KindOf(err))

	_, err = newTestClient(server.URL).ListModels(context.Background())
	assert.Equal(t, core.KindGatewayUnavailable, core.KindOf(err))
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string][]string{"models": {"gpt-4o", "claude"}})
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "claude"}, models)
}

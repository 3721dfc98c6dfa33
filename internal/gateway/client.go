// Package gateway provides an HTTP client for the external LLM gateway
// service that executes rendered prompts.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/prompt-warden/internal/config"
	"github.com/sevigo/prompt-warden/internal/core"
)

// Gateway is the contract the executor depends on. The gateway exposes text
// generation, chat completion, and model discovery.
type Gateway interface {
	Generate(ctx context.Context, req GenerateRequest) (*Response, error)
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
	ListModels(ctx context.Context) ([]string, error)
}

// GenerateRequest is the payload for a flat-text prompt.
type GenerateRequest struct {
	Model      string       `json:"model"`
	Prompt     string       `json:"prompt"`
	Parameters core.JSONMap `json:"parameters,omitempty"`
}

// ChatRequest is the payload for a chat-format prompt.
type ChatRequest struct {
	Model      string         `json:"model"`
	Messages   []core.Message `json:"messages"`
	Parameters core.JSONMap   `json:"parameters,omitempty"`
}

// Metrics mirrors the gateway's reported measurements for one call.
type Metrics struct {
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	TokensInput      int      `json:"tokens_input"`
	TokensOutput     int      `json:"tokens_output"`
	Cost             *float64 `json:"cost,omitempty"`
}

// Response is the gateway's answer to a generate or chat call.
type Response struct {
	Output  string  `json:"output"`
	Metrics Metrics `json:"metrics"`
	Status  string  `json:"status"`
}

// Client talks to the LLM gateway over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a gateway client. The configured timeout bounds every
// call; a timed-out call is classified as gateway-unavailable.
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxConnsPerHost:     10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
	}
}

// Generate executes a flat-text prompt.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Response, error) {
	return c.invoke(ctx, "/generate", req)
}

// Chat executes a chat-format prompt.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	return c.invoke(ctx, "/chat", req)
}

// ListModels returns the model names the gateway serves.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create models request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.GatewayUnavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.GatewayUnavailable(err)
	}
	if resp.StatusCode >= 400 {
		return nil, core.GatewayFailure(resp.StatusCode, gatewayMessage(data))
	}

	var result struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal models response: %w", err)
	}
	return result.Models, nil
}

func (c *Client) invoke(ctx context.Context, path string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// no response received: network failure or timeout
		return nil, core.GatewayUnavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.GatewayUnavailable(err)
	}

	if resp.StatusCode >= 400 {
		return nil, core.GatewayFailure(resp.StatusCode, gatewayMessage(data))
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("unmarshal gateway response: %w", err)
	}
	return &response, nil
}

// gatewayMessage extracts a human-readable error from a gateway error body,
// falling back to the raw payload.
func gatewayMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if len(data) == 0 {
		return "llm gateway returned an error"
	}
	return string(data)
}

// Package textgen wraps the Groq chat-completions API behind a single
// Generate call used by the enrichment stages.
package textgen

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsync-ai/alertbridge/pkg/config"
	"github.com/chainsync-ai/alertbridge/pkg/httpclient"
)

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string              `json:"model,omitempty"`
	Messages    []map[string]string `json:"messages,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls Groq chat completions with retry. Without an API key the
// client reports itself unavailable; callers fall back to templated
// text instead of failing the alert.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	hc      *httpclient.Client
	logger  *zap.Logger
}

// NewClient creates a Groq client from config.
func NewClient(cfg *config.GroqConfig, logger *zap.Logger) *Client {
	policy := httpclient.DefaultPolicy()
	policy.AttemptTimeout = cfg.TimeoutDuration()
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		hc:      httpclient.New("groq", policy, logger),
		logger:  logger,
	}
}

// Available reports whether the client is configured to make real calls.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Generate sends the prompt to Groq and returns the assistant content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("groq api key not configured")
	}

	reqBody := ChatRequest{
		Model:       c.model,
		Messages:    []map[string]string{{"role": "user", "content": prompt}},
		Temperature: 0.3,
		MaxTokens:   2000,
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	resp, err := c.hc.Do(ctx, httpclient.Request{
		Method: "POST",
		URL:    c.baseURL + "/openai/v1/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + c.apiKey,
			"Content-Type":  "application/json",
		},
		Body: b,
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("groq returned status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.Unmarshal(resp.Body, &cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from groq")
	}
	return cr.Choices[0].Message.Content, nil
}

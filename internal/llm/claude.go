package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	claudeAPIURL     = "https://api.anthropic.com/v1/messages"
	claudeAPIVersion = "2023-06-01"
	defaultModel     = "claude-sonnet-4-20250514"

	// DefaultMaxTokens is the output budget when the caller does not set one.
	DefaultMaxTokens = 4096
)

// UpstreamError is returned when the generative service itself fails
// (transport, quota, or a non-OK API status). It is always fatal to the
// current pipeline run; retries are the caller's concern.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("claude upstream failure: %v", e.Err)
	}
	return fmt.Sprintf("claude upstream failure (status %d): %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client is a client for the Claude messages API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

// Config holds configuration for the Claude client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // overridable for tests
}

// NewClient creates a new Claude API client.
func NewClient(config Config) *Client {
	model := config.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = claudeAPIURL
	}

	return &Client{
		apiKey: config.APIKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: baseURL,
		model:   model,
	}
}

// Message represents a message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeRequest is the request body for the Claude API.
type claudeRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// claudeResponse is the response from the Claude API.
type claudeResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends a completion request to Claude and returns the text of the
// first content block. maxTokens <= 0 uses DefaultMaxTokens.
func (c *Client) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	req := claudeRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages: []Message{
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if claudeResp.Error != nil {
		return "", &UpstreamError{Message: fmt.Sprintf("%s - %s", claudeResp.Error.Type, claudeResp.Error.Message)}
	}

	if len(claudeResp.Content) == 0 {
		return "", &UpstreamError{Message: "empty response from API"}
	}

	return claudeResp.Content[0].Text, nil
}

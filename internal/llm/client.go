// Package llm talks to OpenAI-compatible chat completion endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.example.com/v1"
	DefaultModel   = "deepseek-chat"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 64 << 10
)

// Message is one entry of a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Model is one entry of the model listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Credentials select the endpoint and model for one call.
type Credentials struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Config configures a Client.
type Config struct {
	BaseURL string        // used when a call carries no base URL
	Model   string        // used when a call carries no model
	Timeout time.Duration // per-request timeout
}

// Client is a stateless model API client. Credentials travel with each call.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// BaseURL returns the base URL used when a caller supplies none.
func (c *Client) BaseURL() string { return c.baseURL }

// Model returns the model used when a caller supplies none.
func (c *Client) Model() string { return c.model }

type modelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// ListModels fetches the models visible to apiKey at baseURL. Both are
// required; nothing is sent when either is blank.
func (c *Client) ListModels(ctx context.Context, apiKey, baseURL string) ([]Model, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(baseURL, "/models"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	var out modelList
	if err := c.do(req, "connection failed", &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []Model{}
	}
	return out.Data, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// ChatCompletion sends messages and returns the first choice's content.
// A blank key fails immediately; a blank base URL or model falls back to the
// client defaults.
func (c *Client) ChatCompletion(ctx context.Context, creds Credentials, messages []Message) (string, error) {
	if strings.TrimSpace(creds.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	baseURL := creds.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = c.baseURL
	}
	model := creds.Model
	if strings.TrimSpace(model) == "" {
		model = c.model
	}

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: false})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(baseURL, "/chat/completions"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)

	var out chatResponse
	if err := c.do(req, "request failed", &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       compactJSON(raw),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// compactJSON re-encodes a JSON body on one line, or returns "{}" when the
// body is not JSON.
func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(raw)); err != nil || buf.Len() == 0 {
		return "{}"
	}
	return buf.String()
}

func joinURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}

// Package openai talks to the OpenAI HTTP API for transcription,
// summarization, prompt derivation, image generation, and titling.
//
// Methods classify failures into retryable and permanent provider
// errors but never retry; the pipeline runner owns the retry budget.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"lantern/internal/config"
	"lantern/internal/services"
)

// Config captures the connection settings for the OpenAI API.
type Config struct {
	APIKey          string
	BaseURL         string
	TranscribeModel string
	ChatModel       string
	ImageModel      string
	Timeout         time.Duration
}

// Usage reports token consumption from a chat completion call.
type Usage struct {
	Provider         string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// UsageFunc receives usage after each metered provider call. The job
// and stage annotations travel on ctx.
type UsageFunc func(ctx context.Context, usage Usage)

// Client issues OpenAI API requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
	usageFunc  UsageFunc
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the transport, primarily for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithUsageFunc registers a token usage observer.
func WithUsageFunc(fn UsageFunc) Option {
	return func(c *Client) {
		c.usageFunc = fn
	}
}

// New builds a client from explicit settings.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("openai: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the loaded configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	return New(Config{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		TranscribeModel: cfg.OpenAI.TranscribeModel,
		ChatModel:       cfg.OpenAI.ChatModel,
		ImageModel:      cfg.OpenAI.ImageModel,
		Timeout:         time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
	}, opts...)
}

// CheckHealth verifies the API is reachable with the configured key.
func (c *Client) CheckHealth(ctx context.Context) services.Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return services.Unhealthy("openai", err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Unhealthy("openai", err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return services.Unhealthy("openai", fmt.Sprintf("models endpoint returned %d", resp.StatusCode))
	}
	return services.Healthy("openai", "reachable")
}

// httpStatusError preserves the response detail for classification and
// operator-facing messages.
type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	snippet := summarizePayloadSnippet(e.Body)
	if snippet == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, snippet)
}

// retryableError reports whether the failure is worth another attempt:
// timeouts, rate limits, and server-side errors qualify.
func retryableError(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout:
			return true
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return true
		case statusErr.StatusCode >= 500:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// providerError wraps a failure in the taxonomy the runner understands.
func providerError(op string, err error) error {
	return services.NewProviderError(op, err, retryableError(err))
}

// apiErrorMessage extracts the human-readable message from an OpenAI
// error payload, falling back to a body snippet.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return summarizePayloadSnippet(string(body))
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: apiErrorMessage(body)}
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) recordUsage(ctx context.Context, model string, prompt, completion, total int64) {
	if c.usageFunc == nil || total == 0 {
		return
	}
	c.usageFunc(ctx, Usage{
		Provider:         "openai",
		Model:            model,
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	})
}

// summarizePayloadSnippet trims a payload for log and error output.
func summarizePayloadSnippet(payload string) string {
	cleaned := strings.Join(strings.Fields(payload), " ")
	if cleaned == "" {
		return ""
	}
	const maxRunes = 160
	if utf8.RuneCountInString(cleaned) <= maxRunes {
		return cleaned
	}
	runes := []rune(cleaned)
	return string(runes[:maxRunes]) + "..."
}

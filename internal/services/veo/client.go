// Package veo renders short videos with Google's Veo models through the
// Gemini API.
//
// Video generation is a long-running remote operation: RenderVideo submits
// the request, polls until the operation completes, and downloads the
// result. Like the openai package, methods classify failures into retryable
// and permanent provider errors but never retry; the pipeline runner owns
// the retry budget. A poll budget that runs out while the operation is
// still pending counts as retryable.
package veo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"lantern/internal/config"
	"lantern/internal/services"
)

// Config captures the connection settings for the Veo API.
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	AspectRatio  string
	PollInterval time.Duration
	PollTimeout  time.Duration
	Timeout      time.Duration
}

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client drives Veo video generation operations.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(time.Duration)

	start func(ctx context.Context, prompt string, frame *genai.Image) (*genai.GenerateVideosOperation, error)
	fetch func(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the transport used for downloads and health
// probes, primarily for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// New builds a client from explicit settings.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("veo: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "veo-3.0-generate-preview"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = "16:9"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 120 * time.Second
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

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("veo: create genai client: %w", err)
	}
	client.start = func(ctx context.Context, prompt string, frame *genai.Image) (*genai.GenerateVideosOperation, error) {
		return api.Models.GenerateVideos(ctx, client.cfg.Model, prompt, frame, &genai.GenerateVideosConfig{
			AspectRatio: client.cfg.AspectRatio,
		})
	}
	client.fetch = func(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
		return api.Operations.GetVideosOperation(ctx, op, nil)
	}
	return client, nil
}

// NewFromConfig builds a client from the loaded configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	return New(ctx, Config{
		APIKey:       cfg.Veo.APIKey,
		BaseURL:      cfg.Veo.BaseURL,
		Model:        cfg.Veo.Model,
		AspectRatio:  cfg.Veo.AspectRatio,
		PollInterval: time.Duration(cfg.Veo.PollIntervalSeconds) * time.Second,
		PollTimeout:  time.Duration(cfg.Veo.PollTimeoutSeconds) * time.Second,
	}, opts...)
}

// CheckHealth verifies the configured model is visible with the configured
// key.
func (c *Client) CheckHealth(ctx context.Context) services.Health {
	url := c.cfg.BaseURL + "/v1beta/models/" + c.cfg.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Unhealthy("veo", err.Error())
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Unhealthy("veo", err.Error())
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return services.Unhealthy("veo", fmt.Sprintf("model endpoint returned %d", resp.StatusCode))
	}
	return services.Healthy("veo", "model "+c.cfg.Model+" reachable")
}

// sleep waits for the poll interval unless the context ends first.
func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// httpStatusError marks a download or probe response outside the 2xx range.
type httpStatusError struct {
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// retryableError reports whether the failure is worth another attempt:
// timeouts, rate limits, and server-side errors qualify.
func retryableError(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusRequestTimeout:
			return true
		case apiErr.Code == http.StatusTooManyRequests:
			return true
		case apiErr.Code >= 500:
			return true
		}
		return false
	}
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

// Package apiclient provides typed access to a running lanternd over
// its HTTP API. The CLI uses it for every command that talks to the
// daemon.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"lantern/internal/api"
)

// ErrNotFound reports that the daemon does not know the requested job
// or artifact.
var ErrNotFound = errors.New("not found")

// StatusError carries a non-2xx daemon response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Client talks to the lanternd HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the transport, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for the given address. Bare host:port addresses
// are treated as http.
func New(address string, opts ...Option) *Client {
	base := strings.TrimSpace(address)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	c := &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized daemon address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL resolves a daemon-relative path, such as a media reference from
// a job result, against the daemon address.
func (c *Client) URL(path string) string {
	if path == "" {
		return ""
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Submit uploads audio under the given filename and enqueues a job.
func (c *Client) Submit(ctx context.Context, filename string, audio io.Reader, mode string) (api.SubmitResponse, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("audio", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, audio); err != nil {
			pw.CloseWithError(err)
			return
		}
		if mode != "" {
			if err := form.WriteField("generation_mode", mode); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(form.Close())
	}()

	var submitted api.SubmitResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs", pr)
	if err != nil {
		return submitted, fmt.Errorf("apiclient: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return submitted, fmt.Errorf("apiclient: %w", err)
	}
	err = decodeResponse(resp, &submitted)
	return submitted, err
}

// SubmitFile uploads the audio file at path and enqueues a job.
func (c *Client) SubmitFile(ctx context.Context, path, mode string) (api.SubmitResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return api.SubmitResponse{}, fmt.Errorf("apiclient: %w", err)
	}
	defer file.Close()
	return c.Submit(ctx, filepath.Base(path), file, mode)
}

// Jobs lists jobs, optionally filtered to the given statuses.
func (c *Client) Jobs(ctx context.Context, statuses ...string) ([]api.Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		query := url.Values{"status": statuses}
		path += "?" + query.Encode()
	}
	var list api.JobListResponse
	if err := c.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return list.Jobs, nil
}

// Job fetches one job with its recorded provider usage.
func (c *Client) Job(ctx context.Context, id string) (api.JobResponse, error) {
	var job api.JobResponse
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(id), &job)
	return job, err
}

// History fetches the append-only status ledger for a job.
func (c *Client) History(ctx context.Context, id string) (api.HistoryResponse, error) {
	var history api.HistoryResponse
	err := c.get(ctx, "/api/jobs/"+url.PathEscape(id)+"/history", &history)
	return history, err
}

// Result fetches the stored artifacts for a finished job.
func (c *Client) Result(ctx context.Context, id string) (api.Result, error) {
	var result api.ResultResponse
	if err := c.get(ctx, "/api/jobs/"+url.PathEscape(id)+"/result", &result); err != nil {
		return api.Result{}, err
	}
	return result.Result, nil
}

// Cancel requests cancellation of a job.
func (c *Client) Cancel(ctx context.Context, id string) (api.CancelResponse, error) {
	var cancelled api.CancelResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs/"+url.PathEscape(id)+"/cancel", nil)
	if err != nil {
		return cancelled, fmt.Errorf("apiclient: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return cancelled, fmt.Errorf("apiclient: %w", err)
	}
	err = decodeResponse(resp, &cancelled)
	return cancelled, err
}

// NotifyTest asks the daemon to send a test notification using its
// configured channel.
func (c *Client) NotifyTest(ctx context.Context) (api.NotificationTestResponse, error) {
	var outcome api.NotificationTestResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/notifications/test", nil)
	if err != nil {
		return outcome, fmt.Errorf("apiclient: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return outcome, fmt.Errorf("apiclient: %w", err)
	}
	err = decodeResponse(resp, &outcome)
	return outcome, err
}

// Health fetches the daemon health report. A degraded daemon answers
// 503 with the same report shape, so that case decodes rather than
// erroring.
func (c *Client) Health(ctx context.Context) (api.HealthReport, error) {
	var report api.HealthReport
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return report, fmt.Errorf("apiclient: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return report, fmt.Errorf("apiclient: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return report, fmt.Errorf("apiclient: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return report, responseError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("apiclient: decode response: %w", err)
	}
	return report, nil
}

// Status fetches the daemon runtime status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("apiclient: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %w", err)
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("apiclient: decode response: %w", err)
	}
	return nil
}

func responseError(code int, data []byte) error {
	message := http.StatusText(code)
	var apiErr api.ErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
		message = apiErr.Error
	}
	return &StatusError{Code: code, Message: message}
}

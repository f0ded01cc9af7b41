package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lantern/internal/config"
)

const userAgent = "Lantern/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, jobID, title string) error
	NotifyJobFailed(ctx context.Context, jobID, stage string, cause error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	data := payload{
		title:    "Lantern - Complete",
		message:  fmt.Sprintf("✅ %s (job %s)", title, shortID(jobID)),
		tags:     []string{"lantern", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, stage string, cause error) error {
	var builder strings.Builder
	builder.WriteString("❌ Job ")
	builder.WriteString(shortID(jobID))
	builder.WriteString(" failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if cause != nil {
		builder.WriteString(strings.TrimSpace(cause.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Lantern - Job Failed",
		message:  builder.String(),
		tags:     []string{"lantern", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Lantern - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"lantern", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// shortID trims a uuid down to its first group for notification text.
func shortID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string) error     { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }

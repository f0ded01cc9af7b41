package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateVeo(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lantern/config.toml"
		}
		return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'lantern config init')", defaultPath)
	}
	if !strings.HasPrefix(c.OpenAI.BaseURL, "http://") && !strings.HasPrefix(c.OpenAI.BaseURL, "https://") {
		return fmt.Errorf("openai.base_url must be an http(s) URL, got %q", c.OpenAI.BaseURL)
	}
	return nil
}

// validateVeo checks poll settings only. A missing API key is not an
// error; jobs that require video are rejected at submission instead so
// image-only deployments work without a Veo account.
func (c *Config) validateVeo() error {
	if c.Veo.PollIntervalSeconds <= 0 {
		return errors.New("veo.poll_interval_seconds must be positive")
	}
	if c.Veo.PollTimeoutSeconds <= c.Veo.PollIntervalSeconds {
		return errors.New("veo.poll_timeout_seconds must be greater than veo.poll_interval_seconds")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.worker_count":               c.Workflow.WorkerCount,
		"workflow.queue_poll_interval":        c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":       c.Workflow.ErrorRetryInterval,
		"workflow.retry_backoff_seconds":      c.Workflow.RetryBackoffSeconds,
		"workflow.retry_backoff_max_seconds":  c.Workflow.RetryBackoffMaxSeconds,
		"workflow.transcribe_timeout_seconds": c.Workflow.TranscribeTimeoutSeconds,
		"workflow.summarize_timeout_seconds":  c.Workflow.SummarizeTimeoutSeconds,
		"workflow.image_timeout_seconds":      c.Workflow.ImageTimeoutSeconds,
		"workflow.video_timeout_seconds":      c.Workflow.VideoTimeoutSeconds,
		"workflow.title_timeout_seconds":      c.Workflow.TitleTimeoutSeconds,
		"notifications.request_timeout":       c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.QueueCapacity < 0 {
		return errors.New("workflow.queue_capacity must be >= 0")
	}
	if c.Workflow.StageRetries < 0 {
		return errors.New("workflow.stage_retries must be >= 0")
	}
	if c.Workflow.RetryBackoffMaxSeconds < c.Workflow.RetryBackoffSeconds {
		return errors.New("workflow.retry_backoff_max_seconds must be >= workflow.retry_backoff_seconds")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxUploadMB <= 0 {
		return errors.New("upload.max_upload_mb must be positive")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return errors.New("upload.allowed_extensions must include at least one extension")
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("upload.allowed_extensions entries must start with a dot, got %q", ext)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// firstEnv returns the first named environment variable with a
// non-blank value. Set-but-empty variables are treated as absent.
func firstEnv(names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value
		}
	}
	return ""
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeVeo()
	c.normalizeWorkflow()
	c.normalizeUpload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = filepath.Join(c.Paths.DataDir, "media")
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeOpenAI() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = firstEnv("LANTERN_OPENAI_API_KEY", "OPENAI_API_KEY")
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	c.OpenAI.TranscribeModel = strings.TrimSpace(c.OpenAI.TranscribeModel)
	if c.OpenAI.TranscribeModel == "" {
		c.OpenAI.TranscribeModel = defaultTranscribeModel
	}
	c.OpenAI.ChatModel = strings.TrimSpace(c.OpenAI.ChatModel)
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = defaultChatModel
	}
	c.OpenAI.ImageModel = strings.TrimSpace(c.OpenAI.ImageModel)
	if c.OpenAI.ImageModel == "" {
		c.OpenAI.ImageModel = defaultImageModel
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeoutSeconds
	}
}

func (c *Config) normalizeVeo() {
	c.Veo.APIKey = strings.TrimSpace(c.Veo.APIKey)
	if c.Veo.APIKey == "" {
		c.Veo.APIKey = firstEnv("LANTERN_VEO_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	c.Veo.BaseURL = strings.TrimRight(strings.TrimSpace(c.Veo.BaseURL), "/")
	c.Veo.Model = strings.TrimSpace(c.Veo.Model)
	if c.Veo.Model == "" {
		c.Veo.Model = defaultVeoModel
	}
	c.Veo.AspectRatio = strings.TrimSpace(c.Veo.AspectRatio)
	if c.Veo.AspectRatio == "" {
		c.Veo.AspectRatio = defaultVeoAspectRatio
	}
	if c.Veo.PollIntervalSeconds <= 0 {
		c.Veo.PollIntervalSeconds = defaultVeoPollInterval
	}
	if c.Veo.PollTimeoutSeconds <= 0 {
		c.Veo.PollTimeoutSeconds = defaultVeoPollTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.WorkerCount <= 0 {
		c.Workflow.WorkerCount = defaultWorkerCount
	}
	// Zero capacity means unbounded; only negatives are normalized away.
	if c.Workflow.QueueCapacity < 0 {
		c.Workflow.QueueCapacity = 0
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	// Zero retries is an explicit choice; only negatives are normalized away.
	if c.Workflow.StageRetries < 0 {
		c.Workflow.StageRetries = 0
	}
	if c.Workflow.RetryBackoffSeconds <= 0 {
		c.Workflow.RetryBackoffSeconds = defaultRetryBackoffSeconds
	}
	if c.Workflow.RetryBackoffMaxSeconds <= 0 {
		c.Workflow.RetryBackoffMaxSeconds = defaultRetryBackoffMaxSecs
	}
	if c.Workflow.TranscribeTimeoutSeconds <= 0 {
		c.Workflow.TranscribeTimeoutSeconds = defaultTranscribeTimeout
	}
	if c.Workflow.SummarizeTimeoutSeconds <= 0 {
		c.Workflow.SummarizeTimeoutSeconds = defaultSummarizeTimeout
	}
	if c.Workflow.ImageTimeoutSeconds <= 0 {
		c.Workflow.ImageTimeoutSeconds = defaultImageTimeout
	}
	if c.Workflow.VideoTimeoutSeconds <= 0 {
		c.Workflow.VideoTimeoutSeconds = defaultVideoTimeout
	}
	if c.Workflow.TitleTimeoutSeconds <= 0 {
		c.Workflow.TitleTimeoutSeconds = defaultTitleTimeout
	}
}

func (c *Config) normalizeUpload() {
	if c.Upload.MaxUploadMB <= 0 {
		c.Upload.MaxUploadMB = defaultMaxUploadMB
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = defaultAllowedExtensions()
		return
	}
	exts := make([]string, 0, len(c.Upload.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Upload.AllowedExtensions))
	for _, ext := range c.Upload.AllowedExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = defaultAllowedExtensions()
	}
	c.Upload.AllowedExtensions = exts
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = firstEnv("LANTERN_NTFY_TOPIC")
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

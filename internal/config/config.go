package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	MediaDir string `toml:"media_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
}

// OpenAI contains connection settings for transcription, summaries,
// prompts, titles, and image generation.
type OpenAI struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	TranscribeModel string `toml:"transcribe_model"`
	ChatModel       string `toml:"chat_model"`
	ImageModel      string `toml:"image_model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Veo contains connection settings for video generation.
type Veo struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	Model               string `toml:"model"`
	AspectRatio         string `toml:"aspect_ratio"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	PollTimeoutSeconds  int    `toml:"poll_timeout_seconds"`
}

// Workflow contains worker pool sizing, polling cadence, and the retry
// and timeout budgets applied to pipeline stages.
type Workflow struct {
	WorkerCount              int `toml:"worker_count"`
	QueueCapacity            int `toml:"queue_capacity"`
	QueuePollInterval        int `toml:"queue_poll_interval"`
	ErrorRetryInterval       int `toml:"error_retry_interval"`
	HeartbeatInterval        int `toml:"heartbeat_interval"`
	HeartbeatTimeout         int `toml:"heartbeat_timeout"`
	StageRetries             int `toml:"stage_retries"`
	RetryBackoffSeconds      int `toml:"retry_backoff_seconds"`
	RetryBackoffMaxSeconds   int `toml:"retry_backoff_max_seconds"`
	TranscribeTimeoutSeconds int `toml:"transcribe_timeout_seconds"`
	SummarizeTimeoutSeconds  int `toml:"summarize_timeout_seconds"`
	ImageTimeoutSeconds      int `toml:"image_timeout_seconds"`
	VideoTimeoutSeconds      int `toml:"video_timeout_seconds"`
	TitleTimeoutSeconds      int `toml:"title_timeout_seconds"`
}

// Upload contains limits applied to submitted audio files.
type Upload struct {
	MaxUploadMB       int      `toml:"max_upload_mb"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Lantern.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - OpenAI: transcription, summarization, titling, image generation
//   - Veo: video generation
//   - Workflow: worker pool, polling, stage retry and timeout budgets
//   - Upload: submitted audio limits
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	OpenAI        OpenAI        `toml:"openai"`
	Veo           Veo           `toml:"veo"`
	Workflow      Workflow      `toml:"workflow"`
	Upload        Upload        `toml:"upload"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lantern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/lantern/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lantern.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.MediaDir, c.Paths.LogDir, c.UploadsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the queue database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "lantern.db")
}

// UploadsDir returns the directory where submitted audio files are stored.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Paths.DataDir, "uploads")
}

// VideoEnabled reports whether video generation is configured.
func (c *Config) VideoEnabled() bool {
	return strings.TrimSpace(c.Veo.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

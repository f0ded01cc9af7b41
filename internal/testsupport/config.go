package testsupport

import (
	"path/filepath"
	"testing"

	"lantern/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.OpenAI.APIKey = "test-openai-key"
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithVeoKey enables video generation on the test config.
func WithVeoKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Veo.APIKey = key
	}
}

// WithQueueCapacity bounds submissions on the test config.
func WithQueueCapacity(capacity int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.QueueCapacity = capacity
	}
}

// WithWorkerCount overrides the worker pool size on the test config.
func WithWorkerCount(count int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.WorkerCount = count
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lantern/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-openai-key")
	t.Setenv("LANTERN_OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Workflow.WorkerCount != 4 {
		t.Fatalf("worker count = %d, want 4", cfg.Workflow.WorkerCount)
	}
	if cfg.Workflow.QueueCapacity != 0 {
		t.Fatalf("queue capacity = %d, want 0", cfg.Workflow.QueueCapacity)
	}
	if cfg.Workflow.StageRetries != 2 {
		t.Fatalf("stage retries = %d, want 2", cfg.Workflow.StageRetries)
	}
	if cfg.OpenAI.APIKey != "test-openai-key" {
		t.Fatalf("api key = %q, want env fallback", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.TranscribeModel != "whisper-1" {
		t.Fatalf("transcribe model = %q", cfg.OpenAI.TranscribeModel)
	}
	if cfg.Veo.Model != "veo-3.0-generate-preview" {
		t.Fatalf("veo model = %q", cfg.Veo.Model)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data dir not expanded: %q", cfg.Paths.DataDir)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LANTERN_OPENAI_API_KEY", "")
	dir := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+dir+`/data"
api_bind = "0.0.0.0:9000"

[openai]
api_key = "sk-from-file"
chat_model = "gpt-4o"

[workflow]
worker_count = 2
queue_capacity = 8
stage_retries = 0

[upload]
allowed_extensions = ["WAV", ".flac"]

[logging]
format = "json"
level = "debug"
`)

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.OpenAI.APIKey != "sk-from-file" {
		t.Fatalf("api key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Fatalf("chat model = %q", cfg.OpenAI.ChatModel)
	}
	if cfg.Workflow.WorkerCount != 2 {
		t.Fatalf("worker count = %d", cfg.Workflow.WorkerCount)
	}
	if cfg.Workflow.QueueCapacity != 8 {
		t.Fatalf("queue capacity = %d", cfg.Workflow.QueueCapacity)
	}
	if cfg.Workflow.StageRetries != 0 {
		t.Fatalf("explicit zero retries overridden: %d", cfg.Workflow.StageRetries)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("api bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Paths.MediaDir != filepath.Join(dir, "data", "media") {
		t.Fatalf("media dir = %q", cfg.Paths.MediaDir)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "data", "lantern.db") {
		t.Fatalf("database path = %q", cfg.DatabasePath())
	}
	got := strings.Join(cfg.Upload.AllowedExtensions, ",")
	if got != ".wav,.flac" {
		t.Fatalf("allowed extensions = %q", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestLoadRequiresOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LANTERN_OPENAI_API_KEY", "")
	path := writeConfig(t, `
[paths]
data_dir = "`+t.TempDir()+`"
`)

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !strings.Contains(err.Error(), "openai.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvalidWorkflow(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	path := writeConfig(t, `
[workflow]
heartbeat_interval = 30
heartbeat_timeout = 20
`)

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for heartbeat timeout below interval")
	}
	if !strings.Contains(err.Error(), "heartbeat_timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVeoKeyEnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("LANTERN_VEO_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-secret")
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Veo.APIKey != "gemini-secret" {
		t.Fatalf("veo key = %q, want env fallback", cfg.Veo.APIKey)
	}
	if !cfg.VideoEnabled() {
		t.Fatal("expected VideoEnabled with key present")
	}
}

func TestEnsureDirectories(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	dir := t.TempDir()
	path := writeConfig(t, `
[paths]
data_dir = "`+dir+`/data"
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, want := range []string{
		cfg.Paths.DataDir,
		cfg.Paths.MediaDir,
		cfg.Paths.LogDir,
		cfg.UploadsDir(),
	} {
		info, err := os.Stat(want)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q missing: %v", want, err)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatal("sample missing workflow section")
	}
}

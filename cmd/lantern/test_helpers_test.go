package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lantern/internal/config"
	"lantern/internal/daemon"
	"lantern/internal/logging"
	"lantern/internal/pipeline"
	"lantern/internal/queue"
	"lantern/internal/storage"
	"lantern/internal/testsupport"
)

type fakeBackend struct{}

func (fakeBackend) Transcribe(context.Context, string) (string, error) {
	return "transcript text", nil
}

func (fakeBackend) Summarize(context.Context, string) (string, error) {
	return "summary text", nil
}

func (fakeBackend) DeriveImagePrompt(context.Context, string) (string, error) {
	return "image prompt", nil
}

func (fakeBackend) GenerateImage(context.Context, string) ([]byte, error) {
	return []byte("png-bytes"), nil
}

func (fakeBackend) BuildVideoPrompt(context.Context, string, string, string) (string, error) {
	return "video prompt", nil
}

func (fakeBackend) RenderVideo(context.Context, string, []byte, string) ([]byte, error) {
	return []byte("mp4-bytes"), nil
}

func (fakeBackend) GenerateTitle(context.Context, string, []byte) (string, error) {
	return "Morning Standup Recap", nil
}

func fakeProviders() pipeline.Providers {
	backend := fakeBackend{}
	return pipeline.Providers{
		Transcriber:  backend,
		Summarizer:   backend,
		Images:       backend,
		VideoPrompts: backend,
		Videos:       backend,
		Titles:       backend,
	}
}

// blockingBackend holds jobs in the transcribe stage until released so
// tests can observe in-flight state deterministically.
type blockingBackend struct {
	fakeBackend
	release chan struct{}
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{release: make(chan struct{})}
}

func (b *blockingBackend) Transcribe(ctx context.Context, _ string) (string, error) {
	select {
	case <-b.release:
		return "transcript text", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func blockingProviders(backend *blockingBackend) pipeline.Providers {
	return pipeline.Providers{
		Transcriber:  backend,
		Summarizer:   backend,
		Images:       backend,
		VideoPrompts: backend,
		Videos:       backend,
		Titles:       backend,
	}
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	apiAddr    string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	return setupCLITestEnvProviders(t, fakeProviders(), opts...)
}

func setupCLITestEnvProviders(t *testing.T, providers pipeline.Providers, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfgOpts := append([]testsupport.ConfigOption{func(cfg *config.Config) {
		cfg.Workflow.WorkerCount = 2
		cfg.Workflow.QueuePollInterval = 1
	}}, opts...)
	cfg := testsupport.NewConfig(t, cfgOpts...)

	configPath := filepath.Join(homeDir, ".config", "lantern", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	files, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	runner, err := pipeline.NewRunner(cfg, store, files, providers, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("pipeline.NewRunner: %v", err)
	}
	pool := pipeline.NewPool(cfg, store, runner, logging.NewNop())

	d, err := daemon.New(cfg, store, files, pool, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		apiAddr:    d.APIAddr(),
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, apiAddr, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--api", apiAddr}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
media_dir = %q
log_dir = %q
api_bind = %q

[openai]
api_key = %q

[workflow]
worker_count = %d
queue_poll_interval = %d
`,
		cfg.Paths.DataDir,
		cfg.Paths.MediaDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.OpenAI.APIKey,
		cfg.Workflow.WorkerCount,
		cfg.Workflow.QueuePollInterval,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeAudioFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("RIFF fake audio payload"), 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}
	return path
}

func waitForStatus(t *testing.T, env *cliTestEnv, jobID string, want queue.Status) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := env.store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job != nil {
			if job.Status == want {
				return
			}
			if job.Status == queue.StatusFailed && want != queue.StatusFailed {
				t.Fatalf("job %s failed: %s", jobID, job.ErrorMessage)
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach %s within 15s", jobID, want)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

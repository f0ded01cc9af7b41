// Package daemonrun wires configuration, storage, providers, and the
// worker pool into a running lanternd process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"lantern/internal/config"
	"lantern/internal/daemon"
	"lantern/internal/logging"
	"lantern/internal/notifications"
	"lantern/internal/pipeline"
	"lantern/internal/preflight"
	"lantern/internal/queue"
	"lantern/internal/services"
	"lantern/internal/services/openai"
	"lantern/internal/services/veo"
	"lantern/internal/storage"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

const (
	maintenanceInterval = time.Hour
	uploadMaxAge        = 24 * time.Hour
)

// Run starts the lantern daemon and blocks until the context is
// cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("lantern-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logProviderSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(CurrentLogPath(cfg), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update lanternd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "lantern-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, "lanternd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	for _, failure := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logger.Warn("preflight check failed",
			logging.String("check", failure.Name),
			logging.String("detail", failure.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported check before submitting jobs"),
		)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	if recovered, err := store.RecoverInterrupted(signalCtx); err != nil {
		logger.Warn("requeue interrupted jobs failed", logging.Error(err))
	} else if recovered > 0 {
		logger.Info("requeued jobs interrupted by previous shutdown",
			logging.Int64("count", recovered))
	}
	if summary, err := store.Health(signalCtx); err != nil {
		logger.Warn("queue snapshot failed", logging.Error(err))
	} else if summary.Total > 0 {
		logger.Info("queue state at startup",
			logging.Int("queued", summary.Queued),
			logging.Int("processing", summary.Processing),
			logging.Int("completed", summary.Completed),
			logging.Int("failed", summary.Failed),
		)
	}

	files, err := storage.New(cfg)
	if err != nil {
		logger.Error("init media storage", logging.Error(err))
		return err
	}

	providers, err := buildProviders(signalCtx, cfg, store, logger)
	if err != nil {
		return fmt.Errorf("configure providers: %w", err)
	}

	notifier := notifications.NewService(cfg)
	runner, err := pipeline.NewRunner(cfg, store, files, providers, notifier, logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}
	pool := pipeline.NewPool(cfg, store, runner, logger)

	d, err := daemon.New(cfg, store, files, pool, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Stop()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon will not process jobs"),
		)
	}

	go runMaintenance(signalCtx, cfg, store, logger)

	<-signalCtx.Done()
	logger.Info("lantern daemon shutting down")
	return nil
}

func buildProviders(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) (pipeline.Providers, error) {
	recordUsage := func(ctx context.Context, usage openai.Usage) {
		jobID, _ := services.JobIDFromContext(ctx)
		stage, _ := services.StageFromContext(ctx)
		err := store.RecordUsage(ctx, queue.Usage{
			JobID:            jobID,
			Stage:            stage,
			Provider:         usage.Provider,
			Model:            usage.Model,
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		})
		if err != nil {
			logger.Warn("record provider usage failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
		}
	}

	ai, err := openai.NewFromConfig(cfg, openai.WithUsageFunc(recordUsage))
	if err != nil {
		return pipeline.Providers{}, err
	}
	providers := pipeline.Providers{
		Transcriber:  ai,
		Summarizer:   ai,
		Images:       ai,
		VideoPrompts: ai,
		Titles:       ai,
	}
	if cfg.VideoEnabled() {
		videos, err := veo.NewFromConfig(ctx, cfg)
		if err != nil {
			return pipeline.Providers{}, err
		}
		providers.Videos = videos
	}
	return providers, nil
}

// runMaintenance sweeps expired uploads and orphaned media directories
// on a fixed cadence, starting with one pass at boot.
func runMaintenance(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) {
	logger = logging.NewComponentLogger(logger, "maintenance")
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		sweep(ctx, cfg, store, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger) {
	storage.CleanStaleUploads(ctx, cfg.UploadsDir(), uploadMaxAge, logger)

	jobs, err := store.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("list jobs for media sweep failed", logging.Error(err))
		}
		return
	}
	known := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		known[job.ID] = struct{}{}
	}
	storage.CleanOrphanedMedia(ctx, cfg.Paths.MediaDir, known, logger)
}

// CurrentLogPath returns the stable pointer to the newest daemon run
// log. `lantern logs` tails this path.
func CurrentLogPath(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "lanternd.log")
}

func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := fmt.Sprintf("%d\n", os.Getpid())
	return os.WriteFile(path, []byte(value), 0o644)
}

func logProviderSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("provider snapshot",
		logging.String(logging.FieldEventType, "provider_snapshot"),
		logging.Bool("openai_key_present", strings.TrimSpace(cfg.OpenAI.APIKey) != ""),
		logging.String("transcribe_model", cfg.OpenAI.TranscribeModel),
		logging.String("chat_model", cfg.OpenAI.ChatModel),
		logging.String("image_model", cfg.OpenAI.ImageModel),
		logging.Bool("video_enabled", cfg.VideoEnabled()),
		logging.String("video_model", cfg.Veo.Model),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lantern/internal/config"
	"lantern/internal/logging"
	"lantern/internal/notifications"
	"lantern/internal/pipeline"
	"lantern/internal/queue"
	"lantern/internal/services"
	"lantern/internal/storage"
)

// Daemon owns the background services and enforces single-instance
// execution through a lock file under the log directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	files  *storage.Store
	pool   *pipeline.Pool

	lockPath string
	lock     *flock.Flock

	server *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	WorkerCount  int
	VideoEnabled bool
	QueueDBPath  string
	LockFilePath string
	JobCounts    map[queue.Status]int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, files *storage.Store, pool *pipeline.Pool, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || files == nil || pool == nil {
		return nil, errors.New("daemon requires config, store, files, and worker pool")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "lanternd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		files:    files,
		pool:     pool,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock, launches the worker pool, and begins
// serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lantern daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pool.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker pool: %w", err)
	}
	if err := d.server.start(runCtx); err != nil {
		d.pool.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("lantern daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("workers", d.pool.WorkerCount()),
		logging.Bool("video_enabled", d.cfg.VideoEnabled()),
	)
	return nil
}

// Stop shuts down the API server and worker pool and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.pool.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lantern daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound API listen address, empty before Start.
func (d *Daemon) APIAddr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		WorkerCount:  d.pool.WorkerCount(),
		VideoEnabled: d.cfg.VideoEnabled(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if counts, err := d.store.Stats(ctx); err == nil {
		status.JobCounts = counts
	} else {
		d.logger.Warn("failed to read job counts", logging.Error(err))
	}
	return status
}

// Health aggregates readiness probes for the daemon's subsystems. Probes
// cover the job database, the worker pool, the storage roots, and
// provider configuration. Provider reachability belongs to preflight,
// not here, so a provider outage cannot flap the health endpoint.
func (d *Daemon) Health(ctx context.Context) []services.Health {
	checks := make([]services.Health, 0, 5)

	dbHealth, err := d.store.CheckHealth(ctx)
	switch {
	case err != nil:
		checks = append(checks, services.Unhealthy("database", err.Error()))
	case !dbHealth.IntegrityCheck:
		checks = append(checks, services.Unhealthy("database", "integrity check failed"))
	default:
		checks = append(checks, services.Healthy("database", fmt.Sprintf("%d jobs", dbHealth.TotalJobs)))
	}

	if d.pool.Running() {
		checks = append(checks, services.Healthy("workers", fmt.Sprintf("%d workers", d.pool.WorkerCount())))
	} else {
		checks = append(checks, services.Unhealthy("workers", "worker pool stopped"))
	}

	checks = append(checks, d.files.CheckHealth(ctx))

	if strings.TrimSpace(d.cfg.OpenAI.APIKey) != "" {
		checks = append(checks, services.Healthy("openai", "API key configured"))
	} else {
		checks = append(checks, services.Unhealthy("openai", "API key missing"))
	}

	if d.cfg.VideoEnabled() {
		checks = append(checks, services.Healthy("veo", "video generation enabled"))
	} else {
		checks = append(checks, services.Healthy("veo", "video generation disabled"))
	}

	return checks
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lantern/internal/config"
	"lantern/internal/logging"
	"lantern/internal/queue"
	"lantern/internal/services"
)

// Pool runs a fixed set of workers that claim queued jobs and process
// them with the Runner. Worker zero additionally reclaims jobs whose
// heartbeat went stale, so a crashed worker cannot strand a job.
type Pool struct {
	cfg    *config.Config
	store  *queue.Store
	runner *Runner
	logger *slog.Logger

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool constructs a worker pool over the queue store and runner.
func NewPool(cfg *config.Config, store *queue.Store, runner *Runner, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		cfg:          cfg,
		store:        store,
		runner:       runner,
		logger:       logging.NewComponentLogger(logger, "pipeline-pool"),
		pollInterval: seconds(cfg.Workflow.QueuePollInterval),
	}
}

// WorkerCount reports how many workers the pool runs.
func (p *Pool) WorkerCount() int {
	workers := p.cfg.Workflow.WorkerCount
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("pipeline: pool already running")
	}
	workers := p.WorkerCount()
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(workers)
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		go p.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight work.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Running reports whether the pool has active workers.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pool) runWorker(ctx context.Context, worker int) {
	defer p.wg.Done()
	ctx = services.WithWorker(ctx, worker)
	logger := logging.WithContext(ctx, p.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if worker == 0 {
			p.reclaimStale(ctx, logger)
		}

		job, err := p.store.ClaimNextQueued(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			p.waitOrShutdown(ctx, seconds(p.cfg.Workflow.ErrorRetryInterval))
			continue
		}
		if job == nil {
			p.waitOrShutdown(ctx, p.pollInterval)
			continue
		}

		if err := p.processJob(ctx, logger, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// processJob wraps one runner invocation with a heartbeat goroutine so
// the claim stays fresh while stages run.
func (p *Pool) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	jobCtx := services.WithJobID(services.WithRequestID(ctx, uuid.NewString()), job.ID)
	jobLogger := logging.WithContext(jobCtx, logger)
	jobLogger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_claimed"),
		logging.String("mode", string(job.Mode)),
		logging.String("source_file", job.OriginalFilename),
	)

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go p.heartbeatLoop(hbCtx, &hbWG, job.ID)

	err := p.runner.Run(jobCtx, job)
	hbCancel()
	hbWG.Wait()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			jobLogger.Debug("job interrupted by shutdown")
			return err
		}
		jobLogger.Error("job stopped without a terminal status",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "job is requeued once its heartbeat goes stale"),
		)
	}
	return err
}

func (p *Pool) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, jobID string) {
	defer wg.Done()
	interval := seconds(p.cfg.Workflow.HeartbeatInterval)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				p.logger.Warn("heartbeat update failed",
					logging.String(logging.FieldJobID, jobID),
					logging.Error(err),
				)
			}
		}
	}
}

func (p *Pool) reclaimStale(ctx context.Context, logger *slog.Logger) {
	timeout := seconds(p.cfg.Workflow.HeartbeatTimeout)
	if timeout <= 0 {
		return
	}
	reclaimed, err := p.store.ReclaimStale(ctx, time.Now().Add(-timeout))
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		return
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
}

func (p *Pool) waitOrShutdown(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		delay = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

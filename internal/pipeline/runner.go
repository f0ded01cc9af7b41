package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lantern/internal/config"
	"lantern/internal/logging"
	"lantern/internal/notifications"
	"lantern/internal/queue"
	"lantern/internal/services"
	"lantern/internal/storage"
)

// jobRun accumulates intermediate products as a job moves through the
// stages. Earlier stage output feeds later stages and survives into the
// failure result when a later stage gives up.
type jobRun struct {
	job         *queue.Job
	transcript  string
	summary     string
	imagePrompt string
	videoPrompt string
	title       string
	imagePNG    []byte
	imageRef    string
	videoRef    string
}

// Runner executes the full stage sequence for one claimed job.
type Runner struct {
	cfg       *config.Config
	store     *queue.Store
	files     *storage.Store
	providers Providers
	notifier  notifications.Service
	logger    *slog.Logger

	sleeper func(time.Duration)
}

// RunnerOption configures optional Runner behavior.
type RunnerOption func(*Runner)

// WithSleeper replaces the retry backoff sleep. Tests use it to avoid
// real delays.
func WithSleeper(s func(time.Duration)) RunnerOption {
	return func(r *Runner) { r.sleeper = s }
}

// NewRunner builds a Runner over the queue store, artifact storage, and
// generation providers. A nil notifier falls back to the configured
// notification service.
func NewRunner(cfg *config.Config, store *queue.Store, files *storage.Store, providers Providers, notifier notifications.Service, logger *slog.Logger, opts ...RunnerOption) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if store == nil {
		return nil, errors.New("pipeline: queue store is required")
	}
	if files == nil {
		return nil, errors.New("pipeline: artifact storage is required")
	}
	if err := providers.validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:       cfg,
		store:     store,
		files:     files,
		providers: providers,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "pipeline-runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drives job through every stage its mode calls for. The returned
// error is nil once the job reached a terminal status, including
// recorded failures. It is non-nil only when processing stopped without
// a terminal ledger record, such as daemon shutdown or a ledger write
// failure, which leaves the job in a processing status for recovery.
func (r *Runner) Run(ctx context.Context, job *queue.Job) error {
	if job == nil {
		return errors.New("pipeline: job is required")
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, r.logger)
	jr := &jobRun{job: job}
	jobStart := time.Now()

	for _, st := range stageTable {
		if st.skip != nil && st.skip(job.Mode) {
			continue
		}

		cancelled, err := r.cancelRequested(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("cancellation check failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		if cancelled {
			return r.failJob(ctx, logger, jr, st.name, services.ErrCancelled)
		}

		err = r.executeStage(ctx, logger, jr, st)
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, queue.ErrTerminalStatus):
			// Another worker finished or failed the job while we held it.
			logger.Debug("job already terminal; abandoning run", logging.String(logging.FieldStage, st.name))
			return nil
		case ctx.Err() != nil:
			logger.Debug("job interrupted by shutdown", logging.String(logging.FieldStage, st.name))
			return ctx.Err()
		case errors.Is(err, services.ErrLedgerWrite):
			logger.Error("ledger write failed; leaving job for recovery",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			return err
		default:
			return r.failJob(ctx, logger, jr, st.name, err)
		}
	}

	return r.complete(ctx, logger, jr, jobStart)
}

// executeStage appends the stage's ledger status, then runs the stage
// with the configured retry budget. Only retryable provider failures
// are attempted again.
func (r *Runner) executeStage(ctx context.Context, logger *slog.Logger, jr *jobRun, st stageDefinition) error {
	if _, err := r.store.AppendStatus(ctx, jr.job.ID, st.status, ""); err != nil {
		if errors.Is(err, queue.ErrTerminalStatus) || ctx.Err() != nil {
			return err
		}
		return services.Wrap(services.ErrLedgerWrite, st.name, "append status", string(st.status), err)
	}

	ctx = services.WithStage(ctx, st.name)
	stageLogger := logging.WithContext(ctx, logger)
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("status", string(st.status)),
	)

	attempts := r.cfg.Workflow.StageRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := r.backoffDelay(attempt - 1)
			stageLogger.Warn("stage retrying",
				logging.Int("attempt", attempt),
				logging.Duration("backoff", delay),
				logging.Error(lastErr),
			)
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := r.runAttempt(ctx, jr, st)
		if err == nil {
			stageLogger.Info("stage completed",
				logging.String(logging.FieldEventType, "stage_complete"),
				logging.Duration("stage_duration", time.Since(stageStart)),
			)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		if !services.IsRetryable(err) {
			break
		}
	}
	return lastErr
}

// runAttempt executes one stage attempt under the stage's timeout. A
// deadline the stage itself blew is reported as a retryable provider
// failure; provider errors pass through with their own classification.
func (r *Runner) runAttempt(parent context.Context, jr *jobRun, st stageDefinition) error {
	ctx := parent
	timeout := st.timeout(r.cfg.Workflow)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	err := st.run(r, ctx, jr)
	switch {
	case err == nil:
		return nil
	case services.IsProviderError(err):
		return err
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		return services.NewProviderError(st.name, fmt.Errorf("stage timed out after %s", timeout), true)
	default:
		return err
	}
}

func (r *Runner) cancelRequested(ctx context.Context, jobID string) (bool, error) {
	job, err := r.store.GetByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, fmt.Errorf("job %s disappeared from the queue", jobID)
	}
	return job.CancelRequested(), nil
}

// failJob records the terminal failure: a failed ledger entry, a
// write-once result preserving whatever earlier stages produced, and a
// notification. It returns nil once the failure is durably recorded.
func (r *Runner) failJob(ctx context.Context, logger *slog.Logger, jr *jobRun, stageName string, cause error) error {
	message := services.FailureMessage(cause)
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_message", message),
		logging.Alert("stage_failure"),
		logging.Error(cause),
	)

	if _, err := r.store.AppendStatus(ctx, jr.job.ID, queue.StatusFailed, message); err != nil {
		switch {
		case errors.Is(err, queue.ErrTerminalStatus):
			logger.Debug("job already terminal; failure not recorded")
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			logger.Error("failed to record job failure",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			return services.Wrap(services.ErrLedgerWrite, stageName, "append status", string(queue.StatusFailed), err)
		}
	}

	result := queue.Result{
		JobID:        jr.job.ID,
		Transcript:   jr.transcript,
		Summary:      jr.summary,
		Title:        jr.title,
		ImagePath:    jr.imageRef,
		VideoPath:    jr.videoRef,
		ErrorMessage: message,
	}
	if err := r.store.WriteResult(ctx, result); err != nil && !errors.Is(err, queue.ErrResultExists) {
		logger.Error("failed to persist failure result", logging.Error(err))
	}

	if err := r.notifier.NotifyJobFailed(ctx, jr.job.ID, stageName, cause); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	return nil
}

func (r *Runner) complete(ctx context.Context, logger *slog.Logger, jr *jobRun, jobStart time.Time) error {
	if _, err := r.store.AppendStatus(ctx, jr.job.ID, queue.StatusCompleted, ""); err != nil {
		switch {
		case errors.Is(err, queue.ErrTerminalStatus):
			logger.Debug("job already terminal; completion not recorded")
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			logger.Error("failed to record completion; leaving job for recovery", logging.Error(err))
			return services.Wrap(services.ErrLedgerWrite, "", "append status", string(queue.StatusCompleted), err)
		}
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("title", jr.title),
		logging.Duration("job_duration", time.Since(jobStart)),
	)
	if err := r.notifier.NotifyJobCompleted(ctx, jr.job.ID, jr.title); err != nil {
		logger.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

func (r *Runner) backoffDelay(retry int) time.Duration {
	base := seconds(r.cfg.Workflow.RetryBackoffSeconds)
	if base <= 0 {
		base = time.Second
	}
	max := seconds(r.cfg.Workflow.RetryBackoffMaxSeconds)
	delay := base
	for i := 1; i < retry; i++ {
		delay *= 2
		if max > 0 && delay >= max {
			return max
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

func (r *Runner) sleep(ctx context.Context, delay time.Duration) error {
	if r.sleeper != nil {
		r.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

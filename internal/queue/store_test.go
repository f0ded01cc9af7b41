package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lantern/internal/queue"
	"lantern/internal/testsupport"
)

func TestNewJobStartsQueued(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.NewJob(ctx, queue.NewJobParams{
		SourcePath:       "uploads/walk.m4a",
		OriginalFilename: "walk.m4a",
		Mode:             queue.ModeBoth,
	})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job id")
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want queued", job.Status)
	}

	current, err := store.CurrentStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("CurrentStatus: %v", err)
	}
	if current.SequenceNumber != 1 || current.Status != queue.StatusQueued {
		t.Fatalf("initial record = %+v", current)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil || fetched.Mode != queue.ModeBoth {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestNewJobRejectsInvalidMode(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, err := store.NewJob(context.Background(), queue.NewJobParams{
		SourcePath: "uploads/walk.m4a",
		Mode:       queue.GenerationMode("audio"),
	})
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestNewJobHonorsCapacity(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t, testsupport.WithQueueCapacity(2)))
	ctx := context.Background()

	testsupport.NewJob(t, store, queue.ModeImage)
	second := testsupport.NewJob(t, store, queue.ModeImage)

	_, err := store.NewJob(ctx, queue.NewJobParams{
		SourcePath: "uploads/third.wav",
		Mode:       queue.ModeImage,
	})
	if !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// Advancing a job out of queued frees a slot.
	if _, err := store.AppendStatus(ctx, second.ID, queue.StatusTranscribing, ""); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}
	if _, err := store.NewJob(ctx, queue.NewJobParams{
		SourcePath: "uploads/third.wav",
		Mode:       queue.ModeImage,
	}); err != nil {
		t.Fatalf("expected submission after slot freed, got %v", err)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	job, err := store.GetByID(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestClaimNextQueuedOrdersBySubmission(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewJob(t, store, queue.ModeImage)
	second := testsupport.NewJob(t, store, queue.ModeVideo)

	claimed, err := store.ClaimNextQueued(ctx)
	if err != nil {
		t.Fatalf("ClaimNextQueued: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed = %+v, want %s", claimed, first.ID)
	}
	if claimed.LastHeartbeat == nil {
		t.Fatal("claim should stamp heartbeat")
	}

	next, err := store.ClaimNextQueued(ctx)
	if err != nil {
		t.Fatalf("ClaimNextQueued second: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("second claim = %+v, want %s", next, second.ID)
	}

	idle, err := store.ClaimNextQueued(ctx)
	if err != nil {
		t.Fatalf("ClaimNextQueued idle: %v", err)
	}
	if idle != nil {
		t.Fatalf("expected no claimable job, got %+v", idle)
	}
}

func TestRequestCancel(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)
	if err := store.RequestCancel(ctx, job.ID); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	// Idempotent.
	if err := store.RequestCancel(ctx, job.ID); err != nil {
		t.Fatalf("RequestCancel repeat: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !fetched.CancelRequested() {
		t.Fatal("expected cancel flag set")
	}

	if err := store.RequestCancel(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	done := testsupport.NewJob(t, store, queue.ModeImage)
	for _, status := range []queue.Status{queue.StatusTranscribing, queue.StatusCompleted} {
		if _, err := store.AppendStatus(ctx, done.ID, status, ""); err != nil {
			t.Fatalf("AppendStatus %s: %v", status, err)
		}
	}
	if err := store.RequestCancel(ctx, done.ID); !errors.Is(err, queue.ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
}

func TestWriteResultOnce(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)

	absent, err := store.GetResult(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if absent != nil {
		t.Fatalf("expected no result yet, got %+v", absent)
	}

	result := queue.Result{
		JobID:      job.ID,
		Transcript: "a walk in the park",
		Summary:    "Short stroll notes.",
		Title:      "Park Stroll",
		ImagePath:  "/media/" + job.ID + "/image.png",
	}
	if err := store.WriteResult(ctx, result); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := store.WriteResult(ctx, result); !errors.Is(err, queue.ErrResultExists) {
		t.Fatalf("expected ErrResultExists, got %v", err)
	}

	stored, err := store.GetResult(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if stored == nil || stored.Title != "Park Stroll" || stored.VideoPath != "" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestRecordUsage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)
	if err := store.RecordUsage(ctx, queue.Usage{
		JobID:            job.ID,
		Stage:            "summarize",
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		PromptTokens:     120,
		CompletionTokens: 40,
		TotalTokens:      160,
	}); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	usages, err := store.UsageForJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("UsageForJob: %v", err)
	}
	if len(usages) != 1 || usages[0].TotalTokens != 160 {
		t.Fatalf("usages = %+v", usages)
	}
}

func TestRecoverInterrupted(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	interrupted := testsupport.NewJob(t, store, queue.ModeImage)
	if _, err := store.ClaimNextQueued(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := store.AppendStatus(ctx, interrupted.ID, queue.StatusSummarizing, ""); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}

	clean := testsupport.NewJob(t, store, queue.ModeImage)

	recovered, err := store.RecoverInterrupted(ctx)
	if err != nil {
		t.Fatalf("RecoverInterrupted: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}

	job, err := store.GetByID(ctx, interrupted.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Status != queue.StatusQueued || job.LastHeartbeat != nil {
		t.Fatalf("job = %+v, want requeued without heartbeat", job)
	}

	history, err := store.History(ctx, interrupted.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	last := history[len(history)-1]
	if last.Status != queue.StatusQueued || last.Detail != "requeued after interrupted processing" {
		t.Fatalf("last record = %+v", last)
	}

	untouched, err := store.GetByID(ctx, clean.ID)
	if err != nil {
		t.Fatalf("GetByID clean: %v", err)
	}
	if untouched.Status != queue.StatusQueued {
		t.Fatalf("clean job status = %s", untouched.Status)
	}
}

func TestReclaimStaleHonorsCutoff(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)
	if _, err := store.ClaimNextQueued(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := store.AppendStatus(ctx, job.ID, queue.StatusTranscribing, ""); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}

	// Fresh heartbeat: a cutoff in the past reclaims nothing.
	reclaimed, err := store.ReclaimStale(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStale: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("reclaimed = %d, want 0", reclaimed)
	}

	// A cutoff after the heartbeat treats the worker as stalled.
	reclaimed, err = store.ReclaimStale(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStale stale: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want queued", fetched.Status)
	}
}

func TestHealthCounts(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewJob(t, store, queue.ModeImage)
	working := testsupport.NewJob(t, store, queue.ModeImage)
	failed := testsupport.NewJob(t, store, queue.ModeImage)

	if _, err := store.AppendStatus(ctx, working.ID, queue.StatusTranscribing, ""); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}
	if _, err := store.AppendStatus(ctx, failed.ID, queue.StatusFailed, "provider exploded"); err != nil {
		t.Fatalf("AppendStatus failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 3 || health.Queued != 1 || health.Processing != 1 || health.Failed != 1 {
		t.Fatalf("health = %+v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !dbHealth.DatabaseReadable || !dbHealth.TableExists || !dbHealth.IntegrityCheck {
		t.Fatalf("db health = %+v", dbHealth)
	}
	if dbHealth.TotalJobs != 3 {
		t.Fatalf("total jobs = %d", dbHealth.TotalJobs)
	}
}

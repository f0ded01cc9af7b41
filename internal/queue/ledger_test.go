package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lantern/internal/queue"
	"lantern/internal/testsupport"
)

func TestAppendStatusAssignsSequence(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)

	seq, err := store.AppendStatus(ctx, job.ID, queue.StatusTranscribing, "")
	if err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}
	if seq != 2 {
		t.Fatalf("sequence = %d, want 2 after initial queued record", seq)
	}

	seq, err = store.AppendStatus(ctx, job.ID, queue.StatusSummarizing, "")
	if err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}
	if seq != 3 {
		t.Fatalf("sequence = %d, want 3", seq)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusSummarizing {
		t.Fatalf("materialized status = %s, want summarizing", fetched.Status)
	}
}

func TestAppendStatusUnknownJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, err := store.AppendStatus(context.Background(), "missing", queue.StatusTranscribing, "")
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendStatusRejectsAfterTerminal(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	completed := testsupport.NewJob(t, store, queue.ModeImage)
	for _, status := range []queue.Status{
		queue.StatusTranscribing,
		queue.StatusSummarizing,
		queue.StatusGeneratingImage,
		queue.StatusGeneratingTitle,
		queue.StatusStoring,
		queue.StatusCompleted,
	} {
		if _, err := store.AppendStatus(ctx, completed.ID, status, ""); err != nil {
			t.Fatalf("AppendStatus %s: %v", status, err)
		}
	}
	if _, err := store.AppendStatus(ctx, completed.ID, queue.StatusTranscribing, ""); !errors.Is(err, queue.ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus after completed, got %v", err)
	}

	failed := testsupport.NewJob(t, store, queue.ModeImage)
	if _, err := store.AppendStatus(ctx, failed.ID, queue.StatusFailed, "transcription unavailable"); err != nil {
		t.Fatalf("AppendStatus failed: %v", err)
	}
	if _, err := store.AppendStatus(ctx, failed.ID, queue.StatusQueued, ""); !errors.Is(err, queue.ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus after failed, got %v", err)
	}
}

func TestAppendFailedPersistsErrorMessage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)
	if _, err := store.AppendStatus(ctx, job.ID, queue.StatusFailed, "summarize: provider error"); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.ErrorMessage != "summarize: provider error" {
		t.Fatalf("error message = %q", fetched.ErrorMessage)
	}
}

func TestAppendQueuedReleasesClaim(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)
	if _, err := store.ClaimNextQueued(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := store.AppendStatus(ctx, job.ID, queue.StatusTranscribing, ""); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}
	if _, err := store.AppendStatus(ctx, job.ID, queue.StatusQueued, "requeued after stalled heartbeat"); err != nil {
		t.Fatalf("AppendStatus queued: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatal("requeue should clear heartbeat")
	}

	claimed, err := store.ClaimNextQueued(ctx)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("claimed = %+v, want %s", claimed, job.ID)
	}
}

func TestCurrentStatusTracksHead(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeVideo)
	if _, err := store.AppendStatus(ctx, job.ID, queue.StatusTranscribing, ""); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}
	if _, err := store.AppendStatus(ctx, job.ID, queue.StatusSummarizing, ""); err != nil {
		t.Fatalf("AppendStatus: %v", err)
	}

	current, err := store.CurrentStatus(ctx, job.ID)
	if err != nil {
		t.Fatalf("CurrentStatus: %v", err)
	}
	if current.Status != queue.StatusSummarizing || current.SequenceNumber != 3 {
		t.Fatalf("current = %+v", current)
	}

	if _, err := store.CurrentStatus(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryStrictlyIncreasing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)
	statuses := []queue.Status{
		queue.StatusTranscribing,
		queue.StatusSummarizing,
		queue.StatusGeneratingImage,
		queue.StatusGeneratingTitle,
		queue.StatusStoring,
		queue.StatusCompleted,
	}
	for _, status := range statuses {
		if _, err := store.AppendStatus(ctx, job.ID, status, ""); err != nil {
			t.Fatalf("AppendStatus %s: %v", status, err)
		}
	}

	history, err := store.History(ctx, job.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != len(statuses)+1 {
		t.Fatalf("history length = %d, want %d", len(history), len(statuses)+1)
	}
	if history[0].Status != queue.StatusQueued {
		t.Fatalf("first record = %+v, want queued", history[0])
	}
	for i, record := range history {
		if record.SequenceNumber != int64(i+1) {
			t.Fatalf("record %d has sequence %d", i, record.SequenceNumber)
		}
		if i > 0 && record.SequenceNumber <= history[i-1].SequenceNumber {
			t.Fatalf("sequence not strictly increasing at %d", i)
		}
	}
	for i, status := range statuses {
		if history[i+1].Status != status {
			t.Fatalf("record %d status = %s, want %s", i+1, history[i+1].Status, status)
		}
	}

	if _, err := store.History(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendStatusConcurrentSequenceIntegrity(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, queue.ModeImage)

	const appends = 20
	statuses := []queue.Status{
		queue.StatusTranscribing,
		queue.StatusSummarizing,
		queue.StatusGeneratingImage,
		queue.StatusStoring,
	}

	var wg sync.WaitGroup
	errs := make(chan error, appends)
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.AppendStatus(ctx, job.ID, statuses[i%len(statuses)], ""); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AppendStatus: %v", err)
	}

	history, err := store.History(ctx, job.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != appends+1 {
		t.Fatalf("history length = %d, want %d", len(history), appends+1)
	}
	for i, record := range history {
		if record.SequenceNumber != int64(i+1) {
			t.Fatalf("record %d sequence = %d, want %d", i, record.SequenceNumber, i+1)
		}
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != history[len(history)-1].Status {
		t.Fatalf("materialized status %s does not match ledger head %s", fetched.Status, history[len(history)-1].Status)
	}
}

func TestAppendStatusKeepsJobSequencesIndependent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	const jobCount = 6
	const appendsPerJob = 4

	var wg sync.WaitGroup
	jobCh := make(chan *queue.Job, jobCount)
	errs := make(chan error, jobCount*(appendsPerJob+1))
	for i := 0; i < jobCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := store.NewJob(ctx, queue.NewJobParams{
				SourcePath:       "uploads/audio.wav",
				OriginalFilename: "audio.wav",
				Mode:             queue.ModeImage,
			})
			if err != nil {
				errs <- err
				return
			}
			jobCh <- job
			for n := 0; n < appendsPerJob; n++ {
				if _, err := store.AppendStatus(ctx, job.ID, queue.StatusTranscribing, ""); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(jobCh)
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit/append: %v", err)
	}

	seen := 0
	for job := range jobCh {
		seen++
		history, err := store.History(ctx, job.ID)
		if err != nil {
			t.Fatalf("History %s: %v", job.ID, err)
		}
		if len(history) != appendsPerJob+1 {
			t.Fatalf("job %s history length = %d, want %d", job.ID, len(history), appendsPerJob+1)
		}
		for i, record := range history {
			if record.JobID != job.ID {
				t.Fatalf("job %s history carries a record for %s", job.ID, record.JobID)
			}
			if record.SequenceNumber != int64(i+1) {
				t.Fatalf("job %s record %d sequence = %d, want %d", job.ID, i, record.SequenceNumber, i+1)
			}
		}
	}
	if seen != jobCount {
		t.Fatalf("submitted jobs = %d, want %d", seen, jobCount)
	}
}

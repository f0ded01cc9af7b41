package api

import (
	"testing"
	"time"

	"lantern/internal/queue"
)

func TestFromJob(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	cancelAt := created.Add(time.Minute)
	job := &queue.Job{
		ID:                "9c5f",
		OriginalFilename:  "walk.m4a",
		Mode:              queue.ModeBoth,
		Status:            queue.StatusSummarizing,
		CreatedAt:         created,
		UpdatedAt:         created.Add(2 * time.Minute),
		CancelRequestedAt: &cancelAt,
	}

	dto := FromJob(job)
	if dto.JobID != "9c5f" {
		t.Fatalf("JobID = %q", dto.JobID)
	}
	if dto.GenerationMode != "both" || dto.Status != "summarizing" {
		t.Fatalf("mode/status = %q/%q", dto.GenerationMode, dto.Status)
	}
	if !dto.CancelRequested {
		t.Fatal("expected cancel_requested to be set")
	}
	if dto.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("CreatedAt = %q", dto.CreatedAt)
	}
	if dto.Error != "" {
		t.Fatalf("unexpected error field %q", dto.Error)
	}
}

func TestFromJobNil(t *testing.T) {
	if dto := FromJob(nil); dto.JobID != "" {
		t.Fatalf("expected zero DTO, got %+v", dto)
	}
	if out := FromJobs(nil); out != nil {
		t.Fatalf("expected nil slice, got %v", out)
	}
}

func TestFromResultRewritesMediaURLs(t *testing.T) {
	result := &queue.Result{
		JobID:      "9c5f",
		Transcript: "a transcript",
		Summary:    "a summary",
		Title:      "Harbor at Dawn",
		ImagePath:  "9c5f/image.png",
		VideoPath:  "9c5f/video.mp4",
		CreatedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}

	dto := FromResult(result)
	if dto.ImageURL != "/media/9c5f/image.png" {
		t.Fatalf("ImageURL = %q", dto.ImageURL)
	}
	if dto.VideoURL != "/media/9c5f/video.mp4" {
		t.Fatalf("VideoURL = %q", dto.VideoURL)
	}
	if dto.Title != "Harbor at Dawn" {
		t.Fatalf("Title = %q", dto.Title)
	}
}

func TestMediaURLEmptyRef(t *testing.T) {
	if got := MediaURL(""); got != "" {
		t.Fatalf("MediaURL(\"\") = %q", got)
	}
	if got := MediaURL("  "); got != "" {
		t.Fatalf("MediaURL(blank) = %q", got)
	}
	if got := MediaURL("/abc/image.png"); got != "/media/abc/image.png" {
		t.Fatalf("MediaURL leading slash = %q", got)
	}
}

func TestFromHealth(t *testing.T) {
	healthy := FromHealth([]CheckResult{
		{Name: "database", Ready: true},
		{Name: "workers", Ready: true},
	})
	if !healthy.Ready {
		t.Fatal("expected ready report")
	}

	degraded := FromHealth([]CheckResult{
		{Name: "database", Ready: true},
		{Name: "storage", Ready: false, Detail: "media dir missing"},
	})
	if degraded.Ready {
		t.Fatal("expected degraded report")
	}
}

func TestMergeJobCounts(t *testing.T) {
	counts := MergeJobCounts(map[queue.Status]int{
		queue.StatusQueued:    2,
		queue.StatusCompleted: 5,
	})
	if counts["queued"] != 2 || counts["completed"] != 5 {
		t.Fatalf("counts = %v", counts)
	}
}

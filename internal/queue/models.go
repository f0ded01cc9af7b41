package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a job. The value always mirrors the
// newest ledger record for the job.
type Status string

const (
	StatusQueued          Status = "queued"
	StatusTranscribing    Status = "transcribing"
	StatusSummarizing     Status = "summarizing"
	StatusGeneratingImage Status = "generating_image"
	StatusGeneratingVideo Status = "generating_video"
	StatusGeneratingTitle Status = "generating_title"
	StatusStoring         Status = "storing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

var processingStatuses = map[Status]struct{}{
	StatusTranscribing:    {},
	StatusSummarizing:     {},
	StatusGeneratingImage: {},
	StatusGeneratingVideo: {},
	StatusGeneratingTitle: {},
	StatusStoring:         {},
}

var allStatuses = []Status{
	StatusQueued,
	StatusTranscribing,
	StatusSummarizing,
	StatusGeneratingImage,
	StatusGeneratingVideo,
	StatusGeneratingTitle,
	StatusStoring,
	StatusCompleted,
	StatusFailed,
}

// ParseStatus validates a status string from the API or CLI.
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range allStatuses {
		if candidate == status {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// IsTerminal reports whether the status is absorbing.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsProcessing reports whether a worker owns the job in this status.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// GenerationMode selects which visual artifacts a job produces.
// Transcript, summary, and title are always produced.
type GenerationMode string

const (
	ModeImage GenerationMode = "image"
	ModeVideo GenerationMode = "video"
	ModeBoth  GenerationMode = "both"
)

// ParseMode validates a generation mode string from the API or CLI.
func ParseMode(raw string) (GenerationMode, error) {
	switch GenerationMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeImage:
		return ModeImage, nil
	case ModeVideo:
		return ModeVideo, nil
	case ModeBoth:
		return ModeBoth, nil
	}
	return "", fmt.Errorf("unknown generation mode %q", raw)
}

// WantsImage reports whether the mode includes image generation.
func (m GenerationMode) WantsImage() bool {
	return m == ModeImage || m == ModeBoth
}

// WantsVideo reports whether the mode includes video generation.
func (m GenerationMode) WantsVideo() bool {
	return m == ModeVideo || m == ModeBoth
}

// Job is one submitted audio file moving through the pipeline.
type Job struct {
	ID                string
	SourcePath        string
	OriginalFilename  string
	Mode              GenerationMode
	Status            Status
	ErrorMessage      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastHeartbeat     *time.Time
	CancelRequestedAt *time.Time
}

// CancelRequested reports whether a cancellation is pending for the job.
func (j *Job) CancelRequested() bool {
	return j != nil && j.CancelRequestedAt != nil
}

// StageRecord is one entry in a job's status ledger.
type StageRecord struct {
	JobID          string
	SequenceNumber int64
	Status         Status
	Detail         string
	CreatedAt      time.Time
}

// Result is the write-once artifact bundle for a finished job. Failed
// jobs produce a result whose ErrorMessage explains the failure; fields
// populated before the failure are preserved.
type Result struct {
	JobID        string
	Transcript   string
	Summary      string
	Title        string
	ImagePath    string
	VideoPath    string
	ErrorMessage string
	CreatedAt    time.Time
}

// Usage records token consumption reported by a provider call.
type Usage struct {
	ID               int64
	JobID            string
	Stage            string
	Provider         string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	CreatedAt        time.Time
}

// HealthSummary aggregates job counts for diagnostics.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Completed  int
	Failed     int
}

// DatabaseHealth reports low-level database diagnostics.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	TotalJobs        int
	IntegrityCheck   bool
	Error            string
}

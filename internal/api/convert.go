package api

import (
	"strings"
	"time"

	"lantern/internal/queue"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		JobID:            job.ID,
		OriginalFilename: job.OriginalFilename,
		GenerationMode:   string(job.Mode),
		Status:           string(job.Status),
		Error:            job.ErrorMessage,
		CancelRequested:  job.CancelRequested(),
	}
	dto.CreatedAt = FormatTime(job.CreatedAt)
	dto.UpdatedAt = FormatTime(job.UpdatedAt)
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStageRecord converts one ledger record.
func FromStageRecord(record queue.StageRecord) StageEvent {
	return StageEvent{
		SequenceNumber: record.SequenceNumber,
		Status:         string(record.Status),
		Detail:         record.Detail,
		CreatedAt:      FormatTime(record.CreatedAt),
	}
}

// FromStageRecords converts a job's ledger history.
func FromStageRecords(records []queue.StageRecord) []StageEvent {
	if len(records) == 0 {
		return nil
	}
	out := make([]StageEvent, 0, len(records))
	for _, record := range records {
		out = append(out, FromStageRecord(record))
	}
	return out
}

// FromResult converts a stored result, rewriting artifact references to
// the URLs the daemon serves them under.
func FromResult(result *queue.Result) Result {
	if result == nil {
		return Result{}
	}
	return Result{
		JobID:      result.JobID,
		Transcript: result.Transcript,
		Summary:    result.Summary,
		Title:      result.Title,
		ImageURL:   MediaURL(result.ImagePath),
		VideoURL:   MediaURL(result.VideoPath),
		Error:      result.ErrorMessage,
		CreatedAt:  FormatTime(result.CreatedAt),
	}
}

// FromUsage converts provider usage rows.
func FromUsage(rows []queue.Usage) []Usage {
	if len(rows) == 0 {
		return nil
	}
	out := make([]Usage, 0, len(rows))
	for _, row := range rows {
		out = append(out, Usage{
			Stage:            row.Stage,
			Provider:         row.Provider,
			Model:            row.Model,
			PromptTokens:     row.PromptTokens,
			CompletionTokens: row.CompletionTokens,
			TotalTokens:      row.TotalTokens,
			CreatedAt:        FormatTime(row.CreatedAt),
		})
	}
	return out
}

// FromHealth converts probe results into the health payload.
func FromHealth(checks []CheckResult) HealthReport {
	report := HealthReport{Ready: true, Checks: checks}
	for _, check := range checks {
		if !check.Ready {
			report.Ready = false
			break
		}
	}
	return report
}

// MergeJobCounts produces a string-keyed representation of queue stats.
func MergeJobCounts(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// MediaURL maps a stored artifact reference onto its served URL path.
// Empty references stay empty so optional artifacts marshal cleanly.
func MediaURL(ref string) string {
	ref = strings.Trim(strings.TrimSpace(ref), "/")
	if ref == "" {
		return ""
	}
	return MediaPrefix + ref
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

package queue

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const jobColumns = `id, source_path, original_filename, generation_mode, status,
    error_message, created_at, updated_at, last_heartbeat, cancel_requested_at`

const eventColumns = `job_id, sequence_number, status, detail, created_at`

const resultColumns = `job_id, transcript, summary, title, image_path, video_path,
    error_message, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*Job, error) {
	var (
		job               Job
		mode              string
		status            string
		errorMessage      sql.NullString
		createdAt         string
		updatedAt         string
		lastHeartbeat     sql.NullString
		cancelRequestedAt sql.NullString
	)
	if err := sc.Scan(
		&job.ID,
		&job.SourcePath,
		&job.OriginalFilename,
		&mode,
		&status,
		&errorMessage,
		&createdAt,
		&updatedAt,
		&lastHeartbeat,
		&cancelRequestedAt,
	); err != nil {
		return nil, err
	}
	job.Mode = GenerationMode(mode)
	job.Status = Status(status)
	job.ErrorMessage = errorMessage.String

	var err error
	if job.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if job.LastHeartbeat, err = parseNullableTime(lastHeartbeat); err != nil {
		return nil, fmt.Errorf("parse last_heartbeat: %w", err)
	}
	if job.CancelRequestedAt, err = parseNullableTime(cancelRequestedAt); err != nil {
		return nil, fmt.Errorf("parse cancel_requested_at: %w", err)
	}
	return &job, nil
}

func scanEvent(sc scanner) (StageRecord, error) {
	var (
		record    StageRecord
		status    string
		detail    sql.NullString
		createdAt string
	)
	if err := sc.Scan(&record.JobID, &record.SequenceNumber, &status, &detail, &createdAt); err != nil {
		return StageRecord{}, err
	}
	record.Status = Status(status)
	record.Detail = detail.String

	var err error
	if record.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return StageRecord{}, fmt.Errorf("parse event created_at: %w", err)
	}
	return record, nil
}

func scanResult(sc scanner) (*Result, error) {
	var (
		result       Result
		imagePath    sql.NullString
		videoPath    sql.NullString
		errorMessage sql.NullString
		createdAt    string
	)
	if err := sc.Scan(
		&result.JobID,
		&result.Transcript,
		&result.Summary,
		&result.Title,
		&imagePath,
		&videoPath,
		&errorMessage,
		&createdAt,
	); err != nil {
		return nil, err
	}
	result.ImagePath = imagePath.String
	result.VideoPath = videoPath.String
	result.ErrorMessage = errorMessage.String

	var err error
	if result.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse result created_at: %w", err)
	}
	return &result, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := parseTimeString(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", count), ", ")
}

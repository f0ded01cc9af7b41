package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// MediaPrefix is the URL path under which stored artifacts are served.
const MediaPrefix = "/media/"

// Job describes a queue entry in a transport-friendly format.
type Job struct {
	JobID            string `json:"job_id"`
	OriginalFilename string `json:"original_filename,omitempty"`
	GenerationMode   string `json:"generation_mode"`
	Status           string `json:"status"`
	Error            string `json:"error,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
	CancelRequested  bool   `json:"cancel_requested,omitempty"`
}

// StageEvent is one record from a job's status ledger.
type StageEvent struct {
	SequenceNumber int64  `json:"sequence_number"`
	Status         string `json:"status"`
	Detail         string `json:"detail,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Result is the artifact bundle for a finished job. ImageURL and
// VideoURL are daemon-relative /media/ paths.
type Result struct {
	JobID      string `json:"job_id"`
	Transcript string `json:"transcript,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Title      string `json:"title,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	VideoURL   string `json:"video_url,omitempty"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Usage reports token consumption for one provider call.
type Usage struct {
	Stage            string `json:"stage"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CheckResult captures one readiness probe outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthReport aggregates readiness probes for the health endpoint.
type HealthReport struct {
	Ready  bool          `json:"ready"`
	Checks []CheckResult `json:"checks"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	WorkerCount  int            `json:"worker_count"`
	VideoEnabled bool           `json:"video_enabled"`
	QueueDBPath  string         `json:"queue_db_path,omitempty"`
	LockFilePath string         `json:"lock_file_path,omitempty"`
	JobCounts    map[string]int `json:"job_counts"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CancelResponse acknowledges a recorded cancellation request.
type CancelResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job together with its provider usage.
type JobResponse struct {
	Job   Job     `json:"job"`
	Usage []Usage `json:"usage,omitempty"`
}

// HistoryResponse wraps a job's ordered ledger records.
type HistoryResponse struct {
	JobID  string       `json:"job_id"`
	Events []StageEvent `json:"events"`
}

// ResultResponse wraps a job result.
type ResultResponse struct {
	Result Result `json:"result"`
}

// NotificationTestResponse reports the outcome of a test notification.
type NotificationTestResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the JSON error envelope for non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

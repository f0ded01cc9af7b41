package daemon

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lantern/internal/api"
	"lantern/internal/logging"
	"lantern/internal/queue"
)

// multipartFormSlack covers multipart framing and form fields beyond
// the audio payload itself when bounding the request body.
const multipartFormSlack = 1 << 20

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListJobs(w, r)
	case http.MethodPost:
		s.handleSubmit(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.parseStatusFilter(r.URL.Query()["status"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobs, err := s.jobs.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.daemon.cfg.Upload.MaxUploadMB) << 20
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartFormSlack)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				"upload exceeds the "+strconv.Itoa(s.daemon.cfg.Upload.MaxUploadMB)+" MB limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "audio file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.extensionAllowed(ext) {
		s.writeError(w, http.StatusBadRequest,
			"unsupported file type "+ext+" (allowed: "+strings.Join(s.daemon.cfg.Upload.AllowedExtensions, ", ")+")")
		return
	}

	mode := queue.ModeImage
	if raw := strings.TrimSpace(r.FormValue("generation_mode")); raw != "" {
		mode, err = queue.ParseMode(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "generation_mode must be image, video, or both")
			return
		}
	}
	if mode.WantsVideo() && !s.daemon.cfg.VideoEnabled() {
		s.writeError(w, http.StatusBadRequest, "video generation is not configured; submit with generation_mode=image")
		return
	}

	jobID := queue.NewJobID()
	path, size, err := s.daemon.files.SaveUpload(jobID, header.Filename, file)
	if err != nil {
		s.log().Error("failed to store upload", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job, err := s.daemon.store.NewJob(r.Context(), queue.NewJobParams{
		ID:               jobID,
		SourcePath:       path,
		OriginalFilename: header.Filename,
		Mode:             mode,
	})
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, queue.ErrQueueFull) {
			s.writeError(w, http.StatusTooManyRequests, "job queue is full; retry later")
			return
		}
		s.log().Error("failed to enqueue job", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	logging.WithContext(r.Context(), s.log()).Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("generation_mode", string(job.Mode)),
		logging.String("original_filename", header.Filename),
		logging.Int64("upload_bytes", size),
	)
	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{JobID: job.ID, Status: string(queue.StatusQueued)})
}

func (s *apiServer) handleJobSubpath(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/jobs/"), "/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		s.handleDescribeJob(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history":
		s.handleJobHistory(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "result":
		s.handleJobResult(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "cancel":
		s.handleCancelJob(w, r, parts[0])
	default:
		s.writeError(w, http.StatusNotFound, "job not found")
	}
}

func (s *apiServer) handleDescribeJob(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp, err := s.jobs.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleJobHistory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp, err := s.jobs.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleJobResult(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, err := s.jobs.Result(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		s.writeError(w, http.StatusNotFound, "result not available")
		return
	}
	s.writeJSON(w, http.StatusOK, api.ResultResponse{Result: *result})
}

func (s *apiServer) handleCancelJob(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	err := s.daemon.store.RequestCancel(r.Context(), id)
	switch {
	case errors.Is(err, queue.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, queue.ErrTerminalStatus):
		s.writeError(w, http.StatusConflict, "job already finished")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logging.WithContext(r.Context(), s.log()).Info("cancellation requested",
		logging.String(logging.FieldJobID, id),
	)
	s.writeJSON(w, http.StatusAccepted, api.CancelResponse{JobID: id, Status: "cancel_requested"})
}

func (s *apiServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ref := strings.TrimPrefix(r.URL.Path, api.MediaPrefix)
	path, err := s.daemon.files.Resolve(ref)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "media not found")
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "media not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *apiServer) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range s.daemon.cfg.Upload.AllowedExtensions {
		if strings.EqualFold(strings.TrimSpace(allowed), ext) {
			return true
		}
	}
	return false
}

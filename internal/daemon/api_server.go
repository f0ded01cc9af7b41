package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"lantern/internal/api"
	"lantern/internal/config"
	"lantern/internal/logging"
	"lantern/internal/queue"
	"lantern/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	jobs   *api.JobService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		jobs:   api.NewJobService(d.store),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJobSubpath)
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/notifications/test", srv.handleNotifyTest)
	mux.HandleFunc(api.MediaPrefix, srv.handleMedia)

	srv.server = &http.Server{
		Handler:           srv.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withRequestID accepts a caller-supplied X-Request-ID or mints one,
// echoes it on the response, and annotates the request context so
// handler logs carry the correlation id.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		WorkerCount:  status.WorkerCount,
		VideoEnabled: status.VideoEnabled,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		JobCounts:    api.MergeJobCounts(status.JobCounts),
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	checks := s.daemon.Health(r.Context())
	results := make([]api.CheckResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, api.CheckResult{
			Name:   check.Name,
			Ready:  check.Ready,
			Detail: check.Detail,
		})
	}
	report := api.FromHealth(results)
	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, report)
}

func (s *apiServer) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		s.log().Warn("test notification failed", logging.Error(err))
		s.writeError(w, http.StatusBadGateway, message)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NotificationTestResponse{Sent: sent, Message: message})
}

func (s *apiServer) parseStatusFilter(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, err := queue.ParseStatus(trimmed)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}

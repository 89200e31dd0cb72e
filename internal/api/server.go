// Package api exposes the HTTP interface for the scrape-job service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/deckhq/scrape-service/internal/config"
	"github.com/deckhq/scrape-service/internal/metrics"
	"github.com/deckhq/scrape-service/internal/scrape"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// JobService is the orchestrator contract the transport layer consumes.
type JobService interface {
	CreateJob(ctx context.Context, apiKey, url string, options json.RawMessage) (*scrape.Job, error)
	GetJob(ctx context.Context, id string) (*scrape.Job, error)
	GetJobResult(ctx context.Context, id string) (*scrape.JobResult, error)
	ListJobs(ctx context.Context, apiKey string, page, pageSize int) (scrape.JobPage, error)
}

// Server wires HTTP handlers to the job service.
type Server struct {
	router chi.Router
	jobs   JobService
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(jobs JobService, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(recoverMiddleware(logger))
	r.Use(loggingMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/openapi.json", s.openAPIJSON)
	r.Get("/docs/openapi.yaml", s.openAPIYAML)
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	r.Route("/jobs", func(r chi.Router) {
		r.Use(apiKeyMiddleware(s.apiKeyHeader()))
		r.Post("/", s.createJob)
		r.Get("/", s.listJobs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Get("/result", s.getJobResult)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) apiKeyHeader() string {
	if s.cfg.Server.APIKeyHeader != "" {
		return s.cfg.Server.APIKeyHeader
	}
	return "x-api-key"
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createJobRequest struct {
	URL     string          `json:"url"`
	Options json.RawMessage `json:"options,omitempty"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateJobURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Options) > 0 && !isJSONObject(req.Options) {
		writeError(w, http.StatusBadRequest, "options must be an object")
		return
	}

	apiKey := r.Header.Get(s.apiKeyHeader())
	job, err := s.jobs.CreateJob(r.Context(), apiKey, req.URL, req.Options)
	if err != nil {
		s.logger.Error("create job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     job.Status,
		"status_url": fmt.Sprintf("/jobs/%s", job.ID),
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		s.logger.Error("get job failed", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           job.ID,
		"status":       job.Status,
		"created_at":   job.CreatedAt,
		"completed_at": job.CompletedAt,
	})
}

func (s *Server) getJobResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := s.jobs.GetJobResult(r.Context(), id)
	if err != nil {
		s.logger.Error("get job result failed", zap.String("job_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch result")
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "result not available")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	pageSize, err := queryInt(r, "page_size", defaultPageSize)
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		writeError(w, http.StatusBadRequest, "page_size must be between 1 and 100")
		return
	}

	apiKey := r.Header.Get(s.apiKeyHeader())
	jobPage, err := s.jobs.ListJobs(r.Context(), apiKey, page, pageSize)
	if err != nil {
		s.logger.Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobPage)
}

func validateJobURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("url must be a valid HTTP or HTTPS URL")
	}
	return nil
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]any
	return json.Unmarshal(raw, &obj) == nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// Package service composes the job store, queue, and result store into the
// façade consumed by the transport layer.
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/deckhq/scrape-service/internal/metrics"
	"github.com/deckhq/scrape-service/internal/scrape"
)

// JobService is pure composition; it holds no state of its own.
type JobService struct {
	jobs    scrape.JobStore
	queue   scrape.Queue
	results scrape.ResultStore
	logger  *zap.Logger
}

// New constructs a JobService.
func New(jobs scrape.JobStore, queue scrape.Queue, results scrape.ResultStore, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{
		jobs:    jobs,
		queue:   queue,
		results: results,
		logger:  logger,
	}
}

// CreateJob persists a pending job, then enqueues its dispatch message.
// If the enqueue fails the row durably exists in pending state with no queue
// message; nothing reconciles that orphan here, the failure is surfaced to
// the caller.
func (s *JobService) CreateJob(ctx context.Context, apiKey, url string, options json.RawMessage) (*scrape.Job, error) {
	job, err := s.jobs.Create(ctx, apiKey, url)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	msg := scrape.DispatchMessage{
		JobID:   job.ID,
		URL:     job.URL,
		Options: options,
	}
	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.logger.Error("job created but enqueue failed; job stays pending",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	metrics.JobSubmitted()
	return job, nil
}

// GetJob returns the job snapshot, or nil when absent.
func (s *JobService) GetJob(ctx context.Context, id string) (*scrape.Job, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// GetJobResult returns the payload only when the job exists and its status
// is exactly completed. The status gate keeps a stale or partial store entry
// from leaking for a job that has not finished.
func (s *JobService) GetJobResult(ctx context.Context, id string) (*scrape.JobResult, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if job == nil || job.Status != scrape.JobStatusCompleted {
		return nil, nil
	}

	result, err := s.results.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}
	return result, nil
}

// ListJobs returns one page of the key's jobs, newest first.
func (s *JobService) ListJobs(ctx context.Context, apiKey string, page, pageSize int) (scrape.JobPage, error) {
	jobPage, err := s.jobs.ListByAPIKey(ctx, apiKey, page, pageSize)
	if err != nil {
		return scrape.JobPage{}, fmt.Errorf("list jobs: %w", err)
	}
	return jobPage, nil
}

// Package worker implements the job-processing loop.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deckhq/scrape-service/internal/metrics"
	"github.com/deckhq/scrape-service/internal/scrape"
)

// Worker consumes dispatch messages and drives each job through its state
// machine. One loop runs per process; multiple worker processes may consume
// the same queue concurrently.
type Worker struct {
	queue     scrape.Queue
	jobs      scrape.JobStore
	results   scrape.ResultStore
	extractor scrape.Extractor
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue scrape.Queue,
	jobs scrape.JobStore,
	results scrape.ResultStore,
	extractor scrape.Extractor,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		jobs:      jobs,
		results:   results,
		extractor: extractor,
		logger:    logger,
	}
}

// Run blocks, consuming messages until the context finishes. Shutdown is
// cooperative: each dequeue timeout is a cancellation checkpoint, and an
// in-flight job is allowed to finish before the loop exits.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return
		}
		msg, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopped")
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		if msg == nil {
			// Timeout with no message; loop to re-check shutdown.
			continue
		}
		w.processJob(ctx, *msg)
	}
}

// processJob converts any failure into a failed status plus a log record.
// One job's failure never terminates the loop.
func (w *Worker) processJob(ctx context.Context, msg scrape.DispatchMessage) {
	w.logger.Info("processing job", zap.String("job_id", msg.JobID), zap.String("url", msg.URL))

	if err := w.runJob(ctx, msg); err != nil {
		w.logger.Error("job failed", zap.String("job_id", msg.JobID), zap.Error(err))
		w.markFailed(ctx, msg.JobID)
		metrics.JobProcessed(string(scrape.JobStatusFailed))
		return
	}

	w.logger.Info("job completed", zap.String("job_id", msg.JobID))
	metrics.JobProcessed(string(scrape.JobStatusCompleted))
}

func (w *Worker) runJob(ctx context.Context, msg scrape.DispatchMessage) error {
	job, err := w.jobs.UpdateStatus(ctx, scrape.UpdateStatusParams{
		ID:     msg.JobID,
		Status: scrape.JobStatusProcessing,
	})
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if job == nil {
		// Only valid ids should reach the queue; an unknown id here is a
		// logic error upstream.
		return fmt.Errorf("mark processing: job %s not found", msg.JobID)
	}

	result, err := w.extractor.Extract(ctx, msg.JobID, msg.URL, msg.Options)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	location, err := w.results.Save(ctx, result)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	completedAt := result.ExtractedAt
	job, err = w.jobs.UpdateStatus(ctx, scrape.UpdateStatusParams{
		ID:             msg.JobID,
		Status:         scrape.JobStatusCompleted,
		CompletedAt:    &completedAt,
		ResultLocation: &location,
	})
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if job == nil {
		return fmt.Errorf("mark completed: job %s not found", msg.JobID)
	}
	return nil
}

// markFailed records the terminal status best-effort; a failure to persist
// it is logged but never crashes the loop.
func (w *Worker) markFailed(ctx context.Context, jobID string) {
	job, err := w.jobs.UpdateStatus(ctx, scrape.UpdateStatusParams{
		ID:     jobID,
		Status: scrape.JobStatusFailed,
	})
	if err != nil {
		w.logger.Error("failed status update did not persist", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if job == nil {
		w.logger.Error("failed status update matched no job", zap.String("job_id", jobID))
	}
}

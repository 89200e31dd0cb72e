// Package memory provides an in-memory job store for development/testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// JobStore keeps job rows in a mutex-guarded map.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]scrape.Job
	order []string

	ids   scrape.IDGenerator
	clock scrape.Clock
}

// NewJobStore constructs a JobStore.
func NewJobStore(ids scrape.IDGenerator, clock scrape.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]scrape.Job),
		ids:   ids,
		clock: clock,
	}
}

// Create inserts a new pending job.
func (s *JobStore) Create(_ context.Context, apiKey, url string) (*scrape.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := scrape.Job{
		ID:        s.ids.NewJobID(),
		APIKey:    apiKey,
		URL:       url,
		Status:    scrape.JobStatusPending,
		CreatedAt: s.clock.Now(),
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return &job, nil
}

// GetJob fetches a job by id; (nil, nil) when absent.
func (s *JobStore) GetJob(_ context.Context, id string) (*scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// UpdateStatus applies a partial update; (nil, nil) when no row matched.
func (s *JobStore) UpdateStatus(_ context.Context, params scrape.UpdateStatusParams) (*scrape.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[params.ID]
	if !ok {
		return nil, nil
	}
	job.Status = params.Status
	if params.CompletedAt != nil {
		t := *params.CompletedAt
		job.CompletedAt = &t
	}
	if params.ResultLocation != nil {
		loc := *params.ResultLocation
		job.ResultLocation = &loc
	}
	s.jobs[params.ID] = job
	return &job, nil
}

// ListByAPIKey pages the key's jobs by creation time descending.
func (s *JobStore) ListByAPIKey(_ context.Context, apiKey string, page, pageSize int) (scrape.JobPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]scrape.Job, 0)
	for _, id := range s.order {
		job := s.jobs[id]
		if job.APIKey == apiKey {
			matched = append(matched, job)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := (page - 1) * pageSize
	items := []scrape.Job{}
	if offset < len(matched) {
		end := offset + pageSize
		if end > len(matched) {
			end = len(matched)
		}
		items = append(items, matched[offset:end]...)
	}
	return scrape.JobPage{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    len(matched),
	}, nil
}

// Package memory stores result payloads in-memory for development/testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// Store keeps results in a mutex-guarded map and returns pseudo URIs.
type Store struct {
	mu      sync.RWMutex
	results map[string]scrape.JobResult
}

// NewStore creates a new in-memory result store.
func NewStore() *Store {
	return &Store{
		results: make(map[string]scrape.JobResult),
	}
}

// Save records the payload under its job id.
func (s *Store) Save(_ context.Context, result scrape.JobResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.JobID] = result
	return fmt.Sprintf("memory://%s.json", result.JobID), nil
}

// Get returns the stored payload, or (nil, nil) when absent.
func (s *Store) Get(_ context.Context, jobID string) (*scrape.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[jobID]
	if !ok {
		return nil, nil
	}
	return &result, nil
}

// Delete drops a payload; tests use it to simulate backend loss.
func (s *Store) Delete(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, jobID)
}

// Package fs implements the filesystem result store.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// Store writes one <jobID>.json file per result under a base directory.
type Store struct {
	dir string
}

// New creates the results directory idempotently and returns a store.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("results directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the payload via a temp file and rename, so readers never see a
// partial result, and returns a local:// location URI.
func (s *Store) Save(_ context.Context, result scrape.JobResult) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result %s: %w", result.JobID, err)
	}

	fullPath := filepath.Join(s.dir, result.JobID+".json")
	tmp, err := os.CreateTemp(s.dir, result.JobID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp result file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write result %s: %w", result.JobID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp result file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename result %s: %w", result.JobID, err)
	}

	return fmt.Sprintf("local://%s", fullPath), nil
}

// Get reads the payload for the job; a missing file is (nil, nil).
func (s *Store) Get(_ context.Context, jobID string) (*scrape.JobResult, error) {
	fullPath := filepath.Join(s.dir, jobID+".json")
	data, err := os.ReadFile(fullPath) // #nosec G304 -- path is derived from the configured results dir.
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read result %s: %w", jobID, err)
	}
	var result scrape.JobResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", jobID, err)
	}
	return &result, nil
}

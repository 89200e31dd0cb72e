// Package scrape defines the domain types and capability interfaces for the
// scrape-job pipeline.
package scrape

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates the lifecycle states of a scrape job.
type JobStatus string

// Job lifecycle: pending -> processing -> completed | failed.
// Completed and failed are terminal.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is issued for the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the durable record tracking one scrape request.
type Job struct {
	ID             string     `json:"id"`
	APIKey         string     `json:"api_key"`
	URL            string     `json:"url"`
	Status         JobStatus  `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	ResultLocation *string    `json:"result_location"`
}

// JobResult is the immutable extracted-data payload for a completed job.
type JobResult struct {
	JobID       string         `json:"job_id"`
	URL         string         `json:"url"`
	ExtractedAt time.Time      `json:"extracted_at"`
	Data        map[string]any `json:"data"`
}

// DispatchMessage is the transient payload carried by the queue from
// submission to the worker. It has no identity beyond the job id and is not
// persisted once consumed.
type DispatchMessage struct {
	JobID   string          `json:"job_id"`
	URL     string          `json:"url"`
	Options json.RawMessage `json:"options,omitempty"`
}

// JobPage is a derived view of one api key's jobs, newest first, plus the
// total count matching that key. Recomputed on every listing request.
type JobPage struct {
	Items    []Job `json:"data"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int   `json:"total"`
}

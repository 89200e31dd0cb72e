package scrape

import (
	"context"
	"encoding/json"
	"time"
)

// UpdateStatusParams describes a partial job update. Status is always
// overwritten; CompletedAt and ResultLocation are modified only when
// non-nil.
type UpdateStatusParams struct {
	ID             string
	Status         JobStatus
	CompletedAt    *time.Time
	ResultLocation *string
}

// JobStore is the durable record of job metadata. Absent rows are returned
// as nil, never as an error.
type JobStore interface {
	// Create allocates a fresh id, inserts the row with status pending and
	// returns the persisted snapshot including the store-assigned creation
	// timestamp.
	Create(ctx context.Context, apiKey, url string) (*Job, error)

	// GetJob is a point lookup; (nil, nil) when no row matches.
	GetJob(ctx context.Context, id string) (*Job, error)

	// UpdateStatus applies a partial update and returns the post-update
	// snapshot, or (nil, nil) when no row matched the id.
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*Job, error)

	// ListByAPIKey returns one page of the key's jobs ordered by creation
	// time descending. The caller enforces page >= 1 and 1 <= pageSize <= 100.
	ListByAPIKey(ctx context.Context, apiKey string, page, pageSize int) (JobPage, error)
}

// Queue is a durable at-least-once FIFO channel for dispatch messages.
type Queue interface {
	// Enqueue pushes the message onto the tail of the list and returns once
	// the broker acknowledges the write.
	Enqueue(ctx context.Context, msg DispatchMessage) error

	// Dequeue blocks up to the queue's configured timeout and returns the
	// next message, or (nil, nil) when none arrived. The timeout is the
	// worker's shutdown checkpoint, not an error. Malformed payloads are
	// logged and discarded, surfacing as (nil, nil).
	Dequeue(ctx context.Context) (*DispatchMessage, error)

	Close() error
}

// ResultStore persists and retrieves extracted-data payloads.
type ResultStore interface {
	// Save writes the result and returns an opaque location URI identifying
	// where the payload lives.
	Save(ctx context.Context, result JobResult) (string, error)

	// Get returns the result for the job, or (nil, nil) when absent.
	Get(ctx context.Context, jobID string) (*JobResult, error)
}

// Extractor runs the scrape task for one job. The production implementation
// is a placeholder that simulates extraction latency.
type Extractor interface {
	Extract(ctx context.Context, jobID, url string, options json.RawMessage) (JobResult, error)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator allocates job ids.
type IDGenerator interface {
	NewJobID() string
}

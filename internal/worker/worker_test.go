package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	queuememory "github.com/deckhq/scrape-service/internal/queue/memory"
	resultsmemory "github.com/deckhq/scrape-service/internal/results/memory"
	"github.com/deckhq/scrape-service/internal/scrape"
	storememory "github.com/deckhq/scrape-service/internal/store/memory"
)

type seqIDGen struct{ n int }

func (g *seqIDGen) NewJobID() string {
	g.n++
	return fmt.Sprintf("job_%03d", g.n)
}

type tickingClock struct{ now time.Time }

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type stubExtractor struct {
	err error
}

func (e *stubExtractor) Extract(_ context.Context, jobID, url string, _ json.RawMessage) (scrape.JobResult, error) {
	if e.err != nil {
		return scrape.JobResult{}, e.err
	}
	return scrape.JobResult{
		JobID:       jobID,
		URL:         url,
		ExtractedAt: time.Unix(1700000000, 0).UTC(),
		Data:        map[string]any{"title": "Mock Page"},
	}, nil
}

type fixture struct {
	jobs    *storememory.JobStore
	queue   *queuememory.Queue
	results *resultsmemory.Store
}

func newFixture() fixture {
	return fixture{
		jobs:    storememory.NewJobStore(&seqIDGen{}, &tickingClock{now: time.Unix(1700000000, 0).UTC()}),
		queue:   queuememory.NewQueue(8, 10*time.Millisecond),
		results: resultsmemory.NewStore(),
	}
}

func (f fixture) submit(t *testing.T, url string) *scrape.Job {
	t.Helper()
	ctx := context.Background()
	job, err := f.jobs.Create(ctx, "dk_live_test", url)
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(ctx, scrape.DispatchMessage{JobID: job.ID, URL: job.URL}))
	return job
}

func TestWorkerCompletesDispatchedJob(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := f.submit(t, "https://example.com")

	w := New(f.queue, f.jobs, f.results, &stubExtractor{}, nil)
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		got, err := f.jobs.GetJob(ctx, job.ID)
		return err == nil && got != nil && got.Status == scrape.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	got, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.ResultLocation)
	assert.Equal(t, "memory://"+job.ID+".json", *got.ResultLocation)

	result, err := f.results.Get(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, job.URL, result.URL)
}

func TestWorkerMarksJobFailedOnExtractorError(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	job := f.submit(t, "https://example.com")

	w := New(f.queue, f.jobs, f.results, &stubExtractor{err: errors.New("extraction blew up")}, nil)
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		got, err := f.jobs.GetJob(ctx, job.ID)
		return err == nil && got != nil && got.Status == scrape.JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	got, err := f.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.ResultLocation)

	result, err := f.results.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestWorkerSurvivesOneJobFailing(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Unknown job id: processing-status update matches no row.
	require.NoError(t, f.queue.Enqueue(ctx, scrape.DispatchMessage{JobID: "job_ghost", URL: "https://example.com"}))
	job := f.submit(t, "https://example.com/ok")

	w := New(f.queue, f.jobs, f.results, &stubExtractor{}, nil)
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		got, err := f.jobs.GetJob(ctx, job.ID)
		return err == nil && got != nil && got.Status == scrape.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	w := New(f.queue, f.jobs, f.results, &stubExtractor{}, nil)
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

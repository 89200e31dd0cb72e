package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhq/scrape-service/internal/scrape"
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

func newTestStore() *JobStore {
	return NewJobStore(&seqIDGen{}, &tickingClock{now: time.Unix(1700000000, 0).UTC()})
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "dk_live_test", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, scrape.JobStatusPending, created.Status)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetJob(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *created, *got)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.ResultLocation)

	missing, err := store.GetJob(ctx, "job_nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "dk_live_test", "https://example.com")
	require.NoError(t, err)

	updated, err := store.UpdateStatus(ctx, scrape.UpdateStatusParams{
		ID:     created.ID,
		Status: scrape.JobStatusProcessing,
	})
	require.NoError(t, err)
	assert.Equal(t, scrape.JobStatusProcessing, updated.Status)
	assert.Nil(t, updated.CompletedAt)

	completedAt := time.Unix(1700000100, 0).UTC()
	location := "local://results/" + created.ID + ".json"
	updated, err = store.UpdateStatus(ctx, scrape.UpdateStatusParams{
		ID:             created.ID,
		Status:         scrape.JobStatusCompleted,
		CompletedAt:    &completedAt,
		ResultLocation: &location,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, completedAt, *updated.CompletedAt)
	require.NotNil(t, updated.ResultLocation)
	assert.Equal(t, location, *updated.ResultLocation)

	gone, err := store.UpdateStatus(ctx, scrape.UpdateStatusParams{
		ID:     "job_gone",
		Status: scrape.JobStatusFailed,
	})
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestListByAPIKeyPagination(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	ctx := context.Background()

	for i := range 25 {
		_, err := store.Create(ctx, "dk_live_test", fmt.Sprintf("https://example.com/%d", i))
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, "dk_live_other", "https://example.org")
	require.NoError(t, err)

	page, err := store.ListByAPIKey(ctx, "dk_live_test", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	require.Len(t, page.Items, 10)
	// Newest first: page 2 holds jobs ranked 11-20 by descending creation
	// time, i.e. the 15th through 6th created.
	assert.Equal(t, "job_015", page.Items[0].ID)
	assert.Equal(t, "job_006", page.Items[9].ID)

	last, err := store.ListByAPIKey(ctx, "dk_live_test", 3, 10)
	require.NoError(t, err)
	require.Len(t, last.Items, 5)

	empty, err := store.ListByAPIKey(ctx, "dk_live_test", 4, 10)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 25, empty.Total)
}

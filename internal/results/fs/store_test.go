package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhq/scrape-service/internal/results/fs"
	"github.com/deckhq/scrape-service/internal/scrape"
)

func TestNew(t *testing.T) {
	t.Run("CreatesMissingDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "results")
		store, err := fs.New(dir)
		require.NoError(t, err)
		assert.NotNil(t, store)
		assert.DirExists(t, dir)
	})

	t.Run("Idempotent", func(t *testing.T) {
		dir := t.TempDir()
		_, err := fs.New(dir)
		require.NoError(t, err)
		_, err = fs.New(dir)
		require.NoError(t, err)
	})

	t.Run("MissingDir", func(t *testing.T) {
		_, err := fs.New("  ")
		assert.Error(t, err)
	})
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := fs.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	saved := scrape.JobResult{
		JobID:       "job_abc",
		URL:         "https://example.com",
		ExtractedAt: time.Unix(1700000000, 0).UTC(),
		Data: map[string]any{
			"title":   "Mock Page",
			"content": "Extracted text content...",
		},
	}

	location, err := store.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, "local://"+filepath.Join(dir, "job_abc.json"), location)
	assert.FileExists(t, filepath.Join(dir, "job_abc.json"))

	got, err := store.Get(ctx, "job_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved, *got)

	// No temp files remain after the rename.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()
	store, err := fs.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := scrape.JobResult{JobID: "job_abc", URL: "https://example.com", Data: map[string]any{"rev": "one"}}
	second := scrape.JobResult{JobID: "job_abc", URL: "https://example.com", Data: map[string]any{"rev": "two"}}

	_, err = store.Save(ctx, first)
	require.NoError(t, err)
	_, err = store.Save(ctx, second)
	require.NoError(t, err)

	got, err := store.Get(ctx, "job_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "two", got.Data["rev"])
}

func TestGetMissingIsAbsent(t *testing.T) {
	t.Parallel()
	store, err := fs.New(t.TempDir())
	require.NoError(t, err)

	got, err := store.Get(context.Background(), "job_missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetCorruptFileIsAnError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := fs.New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "job_bad.json"), []byte("{not json"), 0o600))

	_, err = store.Get(context.Background(), "job_bad")
	assert.Error(t, err)
}

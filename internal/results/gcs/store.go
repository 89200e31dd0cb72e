// Package gcs implements the object-storage result store.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// Config holds the object-storage coordinates. Endpoint is optional and only
// set when targeting an emulator or a GCS-compatible service.
type Config struct {
	Endpoint  string
	Bucket    string
	ProjectID string
}

// Store keeps one <jobID>.json object per result in a single bucket.
type Store struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

// New initializes the client and ensures the bucket exists, creating it when
// absent. Authentication uses Application Default Credentials unless an
// endpoint override is supplied.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		// Custom endpoints target emulators or test servers, which take no
		// real credentials.
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	bkt := client.Bucket(cfg.Bucket)
	_, err = bkt.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		logger.Info("creating results bucket", zap.String("bucket", cfg.Bucket))
		if err := bkt.Create(ctx, cfg.ProjectID, nil); err != nil {
			closeClient(client, logger)
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	} else if err != nil {
		closeClient(client, logger)
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

func closeClient(client *storage.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("failed to close storage client", zap.Error(err))
	}
}

func (s *Store) objectName(jobID string) string {
	return jobID + ".json"
}

// Save uploads the payload and returns a gs:// location URI. Service errors
// propagate to the caller.
func (s *Store) Save(ctx context.Context, result scrape.JobResult) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result %s: %w", result.JobID, err)
	}

	name := s.objectName(result.JobID)
	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			s.logger.Warn("failed to close object writer after write failure", zap.Error(closeErr))
		}
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	// Close finalizes the upload.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("close object writer %s: %w", name, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

// Get downloads the payload for the job. A missing object is (nil, nil); an
// unreachable backend also collapses to (nil, nil) for the caller but is
// logged with its cause so the two are distinguishable in operation.
func (s *Store) Get(ctx context.Context, jobID string) (*scrape.JobResult, error) {
	name := s.objectName(jobID)
	rc, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("result backend unreachable",
			zap.String("job_id", jobID),
			zap.String("bucket", s.bucket),
			zap.Error(err),
		)
		return nil, nil
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			s.logger.Warn("failed to close object reader", zap.Error(closeErr))
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", name, err)
	}
	var result scrape.JobResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", jobID, err)
	}
	return &result, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}

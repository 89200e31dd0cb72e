// Package postgres provides the Postgres-backed job store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deckhq/scrape-service/internal/retry"
	"github.com/deckhq/scrape-service/internal/scrape"
)

const jobColumns = "id, api_key, url, status, created_at, completed_at, result_location"

// Config controls the Postgres connection pool used for job rows.
type Config struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobStore persists job metadata in Postgres. Every operation is routed
// through the retry executor; absent rows are nil, never errors.
type JobStore struct {
	pool   Pool
	ids    scrape.IDGenerator
	retry  retry.Options
	logger *zap.Logger
}

// NewJobStore connects a pool and wraps it in a store.
func NewJobStore(ctx context.Context, cfg Config, ids scrape.IDGenerator, logger *zap.Logger) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewJobStoreWithPool(pool, ids, logger), nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewJobStoreWithPool(pool Pool, ids scrape.IDGenerator, logger *zap.Logger) *JobStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobStore{
		pool:   pool,
		ids:    ids,
		retry:  retry.DefaultOptions(),
		logger: logger,
	}
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *JobStore) retryOptions(op string) retry.Options {
	opts := s.retry
	opts.OnRetry = func(err error, attempt int, delay time.Duration) {
		s.logger.Warn("job store retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
	return opts
}

// Create inserts a new pending job and returns the persisted snapshot,
// including the database-assigned creation timestamp.
func (s *JobStore) Create(ctx context.Context, apiKey, url string) (*scrape.Job, error) {
	id := s.ids.NewJobID()
	query := fmt.Sprintf(`INSERT INTO jobs (id, api_key, url, status) VALUES ($1, $2, $3, $4) RETURNING %s`, jobColumns)

	return retry.Do(ctx, "jobStore.Create", s.retryOptions("create"), func(int) (*scrape.Job, error) {
		row := s.pool.QueryRow(ctx, query, id, apiKey, url, string(scrape.JobStatusPending))
		job, err := scanJob(row)
		if err != nil {
			return nil, fmt.Errorf("insert job: %w", err)
		}
		return job, nil
	})
}

// GetJob is a point lookup; (nil, nil) when no row matches.
func (s *JobStore) GetJob(ctx context.Context, id string) (*scrape.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1`, jobColumns)

	return retry.Do(ctx, "jobStore.GetJob", s.retryOptions("get"), func(int) (*scrape.Job, error) {
		job, err := scanJob(s.pool.QueryRow(ctx, query, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select job: %w", err)
		}
		return job, nil
	})
}

// UpdateStatus overwrites the status and any supplied optional fields,
// returning the post-update snapshot or (nil, nil) when no row matched.
func (s *JobStore) UpdateStatus(ctx context.Context, params scrape.UpdateStatusParams) (*scrape.Job, error) {
	set := "status = $2"
	args := []any{params.ID, string(params.Status)}
	if params.CompletedAt != nil {
		args = append(args, *params.CompletedAt)
		set += fmt.Sprintf(", completed_at = $%d", len(args))
	}
	if params.ResultLocation != nil {
		args = append(args, *params.ResultLocation)
		set += fmt.Sprintf(", result_location = $%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE jobs SET %s WHERE id = $1 RETURNING %s`, set, jobColumns)

	return retry.Do(ctx, "jobStore.UpdateStatus", s.retryOptions("update_status"), func(int) (*scrape.Job, error) {
		job, err := scanJob(s.pool.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("update job: %w", err)
		}
		return job, nil
	})
}

// ListByAPIKey pages the key's jobs newest first. The page query and the
// total-count query run concurrently; they are independent and exact
// consistency between them is not guaranteed.
func (s *JobStore) ListByAPIKey(ctx context.Context, apiKey string, page, pageSize int) (scrape.JobPage, error) {
	offset := (page - 1) * pageSize
	listQuery := fmt.Sprintf(`SELECT %s FROM jobs WHERE api_key = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, jobColumns)
	countQuery := `SELECT COUNT(*) FROM jobs WHERE api_key = $1`

	return retry.Do(ctx, "jobStore.ListByAPIKey", s.retryOptions("list"), func(int) (scrape.JobPage, error) {
		var (
			items []scrape.Job
			total int
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := s.pool.Query(gctx, listQuery, apiKey, pageSize, offset)
			if err != nil {
				return fmt.Errorf("select jobs: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				job, err := scanJob(rows)
				if err != nil {
					return fmt.Errorf("scan job: %w", err)
				}
				items = append(items, *job)
			}
			return rows.Err()
		})
		g.Go(func() error {
			if err := s.pool.QueryRow(gctx, countQuery, apiKey).Scan(&total); err != nil {
				return fmt.Errorf("count jobs: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return scrape.JobPage{}, err
		}
		if items == nil {
			items = []scrape.Job{}
		}
		return scrape.JobPage{
			Items:    items,
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		}, nil
	})
}

func scanJob(row pgx.Row) (*scrape.Job, error) {
	var (
		job    scrape.Job
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.APIKey,
		&job.URL,
		&status,
		&job.CreatedAt,
		&job.CompletedAt,
		&job.ResultLocation,
	); err != nil {
		return nil, err
	}
	job.Status = scrape.JobStatus(status)
	return &job, nil
}

// Command worker consumes dispatch messages and processes scrape jobs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/deckhq/scrape-service/internal/clock/system"
	"github.com/deckhq/scrape-service/internal/config"
	"github.com/deckhq/scrape-service/internal/extract"
	"github.com/deckhq/scrape-service/internal/id/uuid"
	"github.com/deckhq/scrape-service/internal/logging"
	"github.com/deckhq/scrape-service/internal/metrics"
	"github.com/deckhq/scrape-service/internal/queue"
	"github.com/deckhq/scrape-service/internal/results"
	"github.com/deckhq/scrape-service/internal/results/fs"
	"github.com/deckhq/scrape-service/internal/results/gcs"
	"github.com/deckhq/scrape-service/internal/scrape"
	"github.com/deckhq/scrape-service/internal/store/postgres"
	"github.com/deckhq/scrape-service/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobs, err := postgres.NewJobStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, uuid.New(), logger)
	if err != nil {
		return fmt.Errorf("init job store: %w", err)
	}
	defer jobs.Close()

	dispatch, err := queue.NewRedisQueue(ctx, queue.RedisConfig{
		URL:            cfg.Queue.URL,
		Name:           cfg.Queue.Name,
		DequeueTimeout: cfg.DequeueTimeout(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init queue: %w", err)
	}
	defer func() {
		if err := dispatch.Close(); err != nil {
			logger.Warn("closing queue", zap.Error(err))
		}
	}()

	resultStore, closeResults, err := buildResultStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}
	defer closeResults()

	extractor := extract.NewSimulated(extract.Config{
		MinLatency: time.Duration(cfg.Worker.ExtractMinSeconds) * time.Second,
		MaxLatency: time.Duration(cfg.Worker.ExtractMaxSeconds) * time.Second,
	}, system.New())

	worker.New(dispatch, jobs, resultStore, extractor, logger).Run(ctx)
	return nil
}

// buildResultStore selects the durable backend from configuration and fronts
// it with the in-process cache.
func buildResultStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (scrape.ResultStore, func(), error) {
	if cfg.Results.UseObjectStorage {
		store, err := gcs.New(ctx, gcs.Config{
			Endpoint:  cfg.Results.GCS.Endpoint,
			Bucket:    cfg.Results.GCS.Bucket,
			ProjectID: cfg.Results.GCS.ProjectID,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing result store", zap.Error(err))
			}
		}
		return results.WithCache(store), closeFn, nil
	}

	store, err := fs.New(cfg.Results.Dir)
	if err != nil {
		return nil, nil, err
	}
	return results.WithCache(store), func() {}, nil
}

// Command server runs the HTTP API for submitting and inspecting scrape jobs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/deckhq/scrape-service/internal/api"
	"github.com/deckhq/scrape-service/internal/config"
	"github.com/deckhq/scrape-service/internal/id/uuid"
	"github.com/deckhq/scrape-service/internal/logging"
	"github.com/deckhq/scrape-service/internal/metrics"
	"github.com/deckhq/scrape-service/internal/queue"
	"github.com/deckhq/scrape-service/internal/results"
	"github.com/deckhq/scrape-service/internal/results/fs"
	"github.com/deckhq/scrape-service/internal/results/gcs"
	"github.com/deckhq/scrape-service/internal/scrape"
	"github.com/deckhq/scrape-service/internal/service"
	"github.com/deckhq/scrape-service/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
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

	svc := service.New(jobs, dispatch, resultStore, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(svc, cfg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("http server stopped")
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

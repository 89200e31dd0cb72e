package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deckhq/scrape-service/internal/metrics"
	"github.com/deckhq/scrape-service/internal/scrape"
)

// RedisConfig points at the list carrying dispatch messages.
type RedisConfig struct {
	// URL is a redis:// connection string.
	URL string
	// Name is the list key.
	Name string
	// DequeueTimeout bounds each blocking pop. The worker uses the timeout
	// as its shutdown checkpoint.
	DequeueTimeout time.Duration
}

// RedisQueue implements scrape.Queue on a Redis list: LPUSH on enqueue,
// BRPOP on dequeue.
type RedisQueue struct {
	client  *redis.Client
	name    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisQueue connects a client and verifies the connection.
func NewRedisQueue(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		closeErr := client.Close()
		if closeErr != nil {
			logger.Warn("failed to close redis client after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	timeout := cfg.DequeueTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisQueue{
		client:  client,
		name:    cfg.Name,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Enqueue pushes the message onto the tail of the list and returns once
// Redis acknowledges the write. It does not wait for a consumer.
func (q *RedisQueue) Enqueue(ctx context.Context, msg scrape.DispatchMessage) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", msg.JobID, err)
	}
	q.logger.Info("job enqueued", zap.String("job_id", msg.JobID))
	return nil
}

// Dequeue blocks up to the configured timeout for the next message.
// A timeout is not an error; it surfaces as (nil, nil). Malformed payloads
// are logged and discarded rather than redelivered.
func (q *RedisQueue) Dequeue(ctx context.Context) (*scrape.DispatchMessage, error) {
	res, err := q.client.BRPop(ctx, q.timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	// BRPOP returns [key, value].
	if len(res) < 2 {
		return nil, nil
	}
	msg, err := DecodeMessage([]byte(res[1]))
	if err != nil {
		q.logger.Error("discarding malformed queue payload",
			zap.String("payload", res[1]),
			zap.Error(err),
		)
		metrics.QueueMessageDiscarded()
		return nil, nil
	}
	q.logger.Info("job dequeued", zap.String("job_id", msg.JobID))
	return &msg, nil
}

// Close releases the client connection.
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

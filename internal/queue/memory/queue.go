// Package memory provides a queue implementation for local development and
// tests, with the same timeout-as-no-message semantics as the Redis list.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// Queue is a bounded in-memory FIFO with a blocking, timeout-bounded dequeue.
type Queue struct {
	ch      chan scrape.DispatchMessage
	timeout time.Duration

	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity and dequeue timeout.
func NewQueue(capacity int, timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Queue{
		ch:      make(chan scrape.DispatchMessage, capacity),
		timeout: timeout,
	}
}

// Enqueue pushes a message or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, msg scrape.DispatchMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- msg:
		return nil
	}
}

// Dequeue pops the next message, waiting up to the queue timeout.
// (nil, nil) signals that no message arrived in time.
func (q *Queue) Dequeue(ctx context.Context) (*scrape.DispatchMessage, error) {
	timer := time.NewTimer(q.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case msg, ok := <-q.ch:
		if !ok {
			return nil, nil
		}
		return &msg, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() error {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return nil
	}
	close(q.ch)
	q.closed = true
	return nil
}

// Package extract runs the scrape task for a dispatched job. The real
// extraction pipeline lives elsewhere; this package ships a simulated
// extractor that stands in for it.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/deckhq/scrape-service/internal/scrape"
)

// Config bounds the simulated extraction latency.
type Config struct {
	MinLatency time.Duration
	MaxLatency time.Duration
}

// Simulated implements scrape.Extractor by sleeping within the configured
// latency window and returning a canned payload.
type Simulated struct {
	cfg   Config
	clock scrape.Clock
}

// NewSimulated constructs a simulated extractor.
func NewSimulated(cfg Config, clock scrape.Clock) *Simulated {
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	return &Simulated{cfg: cfg, clock: clock}
}

// Extract waits out the simulated latency, respecting cancellation, and
// returns the canned extracted payload for the URL.
func (e *Simulated) Extract(ctx context.Context, jobID, url string, _ json.RawMessage) (scrape.JobResult, error) {
	delay := e.cfg.MinLatency
	if spread := e.cfg.MaxLatency - e.cfg.MinLatency; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return scrape.JobResult{}, fmt.Errorf("extract %s: %w", url, ctx.Err())
		case <-timer.C:
		}
	}

	extractedAt := e.clock.Now()
	return scrape.JobResult{
		JobID:       jobID,
		URL:         url,
		ExtractedAt: extractedAt,
		Data: map[string]any{
			"title":   "Mock Page",
			"content": "Extracted text content...",
			"metadata": map[string]any{
				"author": "deck",
				"date":   extractedAt.Format(time.RFC3339),
			},
		},
	}, nil
}

// Package metrics exposes Prometheus collectors for the scrape-job service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	jobsSubmittedTotal         prometheus.Counter
	jobsProcessedTotal         *prometheus.CounterVec
	queueMessagesDiscarded     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		jobsSubmittedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_jobs_submitted_total",
				Help: "Total number of scrape jobs accepted for processing.",
			},
		)

		jobsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_jobs_processed_total",
				Help: "Total number of jobs the worker drove to a terminal status.",
			},
			[]string{"status"},
		)

		queueMessagesDiscarded = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_queue_messages_discarded_total",
				Help: "Total number of malformed queue payloads dropped on dequeue.",
			},
		)
	})
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, http.StatusText(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// JobSubmitted counts an accepted submission.
func JobSubmitted() {
	if jobsSubmittedTotal != nil {
		jobsSubmittedTotal.Inc()
	}
}

// JobProcessed counts a job reaching a terminal status.
func JobProcessed(status string) {
	if jobsProcessedTotal != nil {
		jobsProcessedTotal.WithLabelValues(status).Inc()
	}
}

// QueueMessageDiscarded counts one corrupt payload dropped by the queue.
func QueueMessageDiscarded() {
	if queueMessagesDiscarded != nil {
		queueMessagesDiscarded.Inc()
	}
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

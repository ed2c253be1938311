// Package metrics exposes Prometheus collectors for index write traffic.
// Per-crawl counters live in the progress sinks; the collectors here observe
// the sender's flush path across all crawls in the process.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	flushesTotal       *prometheus.CounterVec
	flushRetriesTotal  *prometheus.CounterVec
	flushBatchSize     prometheus.Histogram
	flushFailuresTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		flushesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawldex_flushes_total",
				Help: "Total number of successful batch flushes, labeled by index.",
			},
			[]string{"index"},
		)

		flushRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawldex_flush_retries_total",
				Help: "Total number of retried flush attempts, labeled by index.",
			},
			[]string{"index"},
		)

		flushBatchSize = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawldex_flush_batch_size",
				Help:    "Histogram of documents per flushed batch.",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		)

		flushFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawldex_flush_failures_total",
				Help: "Total number of batches abandoned after the retry budget, labeled by index.",
			},
			[]string{"index"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFlush records one successful batch flush.
func ObserveFlush(index string, batchSize int) {
	Init()
	flushesTotal.WithLabelValues(index).Inc()
	flushBatchSize.Observe(float64(batchSize))
}

// ObserveFlushRetry records one failed flush attempt that will be retried.
func ObserveFlushRetry(index string) {
	Init()
	flushRetriesTotal.WithLabelValues(index).Inc()
}

// ObserveFlushFailure records a batch abandoned after the retry budget.
func ObserveFlushFailure(index string) {
	Init()
	flushFailuresTotal.WithLabelValues(index).Inc()
}

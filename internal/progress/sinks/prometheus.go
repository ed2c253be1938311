package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/progress"
)

// PrometheusNotifier exports crawl telemetry via Prometheus. It owns all
// collectors for crawl lifecycle and counter gauges.
type PrometheusNotifier struct {
	crawlsStarted   prometheus.Counter
	crawlsCompleted *prometheus.CounterVec
	pagesTraversed  *prometheus.GaugeVec
	pagesExtracted  *prometheus.GaugeVec
	documentsSent   *prometheus.GaugeVec
	totalDocuments  *prometheus.GaugeVec
}

// NewPrometheusNotifier registers the collectors against the provided
// registry (the default registry when nil).
func NewPrometheusNotifier(reg prometheus.Registerer) (*PrometheusNotifier, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	n := &PrometheusNotifier{
		crawlsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawldex_crawls_started_total",
			Help: "Total crawls that have started.",
		}),
		crawlsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crawldex_crawls_completed_total",
			Help: "Total crawls finished partitioned by result.",
		}, []string{"result"}),
		pagesTraversed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crawldex_pages_traversed",
			Help: "Pages traversed by the current crawl per index.",
		}, []string{"index"}),
		pagesExtracted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crawldex_pages_extracted",
			Help: "Pages extracted by the current crawl per index.",
		}, []string{"index"}),
		documentsSent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crawldex_documents_sent",
			Help: "Documents queued or flushed to the index by the current crawl.",
		}, []string{"index"}),
		totalDocuments: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crawldex_total_documents",
			Help: "Final document count reported at crawl completion.",
		}, []string{"index"}),
	}
	for _, collector := range []prometheus.Collector{
		n.crawlsStarted,
		n.crawlsCompleted,
		n.pagesTraversed,
		n.pagesExtracted,
		n.documentsSent,
		n.totalDocuments,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return n, nil
}

// Started implements progress.Notifier.
func (n *PrometheusNotifier) Started(_ context.Context, _ crawl.Config) {
	n.crawlsStarted.Inc()
}

// Progress implements progress.Notifier.
func (n *PrometheusNotifier) Progress(_ context.Context, cfg crawl.Config, snap progress.Snapshot) {
	n.pagesTraversed.WithLabelValues(cfg.IndexName).Set(float64(snap.PagesTraversed))
	n.pagesExtracted.WithLabelValues(cfg.IndexName).Set(float64(snap.PagesExtracted))
	n.documentsSent.WithLabelValues(cfg.IndexName).Set(float64(snap.DocumentsSent))
}

// Completed implements progress.Notifier.
func (n *PrometheusNotifier) Completed(_ context.Context, cfg crawl.Config, totalDocuments int64) {
	n.crawlsCompleted.WithLabelValues("success").Inc()
	n.totalDocuments.WithLabelValues(cfg.IndexName).Set(float64(totalDocuments))
}

// Failed implements progress.Notifier.
func (n *PrometheusNotifier) Failed(_ context.Context, cfg crawl.Config, _ error) {
	n.crawlsCompleted.WithLabelValues("error").Inc()
}

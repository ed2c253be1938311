// Package progress defines the telemetry contract between a running crawl and
// external observers. Notifiers are injected into the orchestrator at
// construction so concurrent crawls in one process never share state.
package progress

import (
	"context"

	"github.com/crawldex/crawldex/internal/crawl"
)

// Snapshot carries the three crawl counters. Each counter is monotonically
// non-decreasing for the duration of one crawl.
type Snapshot struct {
	PagesTraversed int64 `json:"pages_traversed"`
	PagesExtracted int64 `json:"pages_extracted"`
	DocumentsSent  int64 `json:"documents_sent"`
}

// Notifier receives crawl lifecycle events. Calls are fire-and-forget:
// implementations must swallow delivery failures; a broken observer never
// affects the crawl outcome.
type Notifier interface {
	Started(ctx context.Context, cfg crawl.Config)
	Progress(ctx context.Context, cfg crawl.Config, snap Snapshot)
	Completed(ctx context.Context, cfg crawl.Config, totalDocuments int64)
	Failed(ctx context.Context, cfg crawl.Config, err error)
}

// Multi fans every event out to all wrapped notifiers.
type Multi []Notifier

// NewMulti builds a fan-out notifier, skipping nil entries.
func NewMulti(notifiers ...Notifier) Multi {
	var m Multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

// Started implements Notifier.
func (m Multi) Started(ctx context.Context, cfg crawl.Config) {
	for _, n := range m {
		n.Started(ctx, cfg)
	}
}

// Progress implements Notifier.
func (m Multi) Progress(ctx context.Context, cfg crawl.Config, snap Snapshot) {
	for _, n := range m {
		n.Progress(ctx, cfg, snap)
	}
}

// Completed implements Notifier.
func (m Multi) Completed(ctx context.Context, cfg crawl.Config, totalDocuments int64) {
	for _, n := range m {
		n.Completed(ctx, cfg, totalDocuments)
	}
}

// Failed implements Notifier.
func (m Multi) Failed(ctx context.Context, cfg crawl.Config, err error) {
	for _, n := range m {
		n.Failed(ctx, cfg, err)
	}
}

// Package sinks provides the shipped progress.Notifier implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/progress"
)

// LogNotifier emits structured logs for crawl telemetry. Useful during
// development or when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier wires a zap logger to the notifier interface.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Started implements progress.Notifier.
func (n *LogNotifier) Started(_ context.Context, cfg crawl.Config) {
	n.logger.Info("crawl started",
		zap.Strings("seeds", cfg.Seeds),
		zap.String("index", cfg.IndexName),
	)
}

// Progress implements progress.Notifier.
func (n *LogNotifier) Progress(_ context.Context, cfg crawl.Config, snap progress.Snapshot) {
	n.logger.Info("crawl progress",
		zap.String("index", cfg.IndexName),
		zap.Int64("pages_traversed", snap.PagesTraversed),
		zap.Int64("pages_extracted", snap.PagesExtracted),
		zap.Int64("documents_sent", snap.DocumentsSent),
	)
}

// Completed implements progress.Notifier.
func (n *LogNotifier) Completed(_ context.Context, cfg crawl.Config, totalDocuments int64) {
	n.logger.Info("crawl completed",
		zap.String("index", cfg.IndexName),
		zap.Int64("total_documents", totalDocuments),
	)
}

// Failed implements progress.Notifier.
func (n *LogNotifier) Failed(_ context.Context, cfg crawl.Config, err error) {
	n.logger.Error("crawl failed",
		zap.String("index", cfg.IndexName),
		zap.Error(err),
	)
}

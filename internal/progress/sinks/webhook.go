package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/progress"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier POSTs crawl lifecycle events to an HTTP endpoint. Delivery
// failures are logged and dropped.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookNotifier builds a notifier posting to the given URL.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: defaultWebhookTimeout},
		logger: logger,
	}
}

type webhookPayload struct {
	Event          string             `json:"event"`
	Index          string             `json:"index"`
	Seeds          []string           `json:"seeds,omitempty"`
	Snapshot       *progress.Snapshot `json:"snapshot,omitempty"`
	TotalDocuments *int64             `json:"total_documents,omitempty"`
	Error          string             `json:"error,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Started implements progress.Notifier.
func (n *WebhookNotifier) Started(ctx context.Context, cfg crawl.Config) {
	n.post(ctx, webhookPayload{Event: "started", Index: cfg.IndexName, Seeds: cfg.Seeds})
}

// Progress implements progress.Notifier.
func (n *WebhookNotifier) Progress(ctx context.Context, cfg crawl.Config, snap progress.Snapshot) {
	n.post(ctx, webhookPayload{Event: "progress", Index: cfg.IndexName, Snapshot: &snap})
}

// Completed implements progress.Notifier.
func (n *WebhookNotifier) Completed(ctx context.Context, cfg crawl.Config, totalDocuments int64) {
	n.post(ctx, webhookPayload{Event: "completed", Index: cfg.IndexName, TotalDocuments: &totalDocuments})
}

// Failed implements progress.Notifier.
func (n *WebhookNotifier) Failed(ctx context.Context, cfg crawl.Config, err error) {
	n.post(ctx, webhookPayload{Event: "failed", Index: cfg.IndexName, Error: err.Error()})
}

func (n *WebhookNotifier) post(ctx context.Context, payload webhookPayload) {
	if n.url == "" {
		return
	}
	payload.Timestamp = time.Now().UTC()
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("webhook payload encode failed", zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.String("event", payload.Event), zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		n.logger.Warn("webhook rejected event",
			zap.String("event", payload.Event),
			zap.String("status", fmt.Sprintf("%d", resp.StatusCode)),
		)
	}
}

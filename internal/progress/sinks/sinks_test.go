package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/progress"
)

func TestWebhookNotifierPostsEvents(t *testing.T) {
	var (
		mu       sync.Mutex
		received []webhookPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		mu.Lock()
		received = append(received, payload)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := crawl.Config{IndexName: "docs", Seeds: []string{"https://x.test/"}}
	n := NewWebhookNotifier(srv.URL, zap.NewNop())
	ctx := context.Background()

	n.Started(ctx, cfg)
	n.Progress(ctx, cfg, progress.Snapshot{PagesTraversed: 3, PagesExtracted: 2, DocumentsSent: 5})
	n.Completed(ctx, cfg, 5)
	n.Failed(ctx, cfg, errors.New("boom"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 4)
	assert.Equal(t, "started", received[0].Event)
	assert.Equal(t, "progress", received[1].Event)
	require.NotNil(t, received[1].Snapshot)
	assert.Equal(t, int64(5), received[1].Snapshot.DocumentsSent)
	assert.Equal(t, "completed", received[2].Event)
	require.NotNil(t, received[2].TotalDocuments)
	assert.Equal(t, int64(5), *received[2].TotalDocuments)
	assert.Equal(t, "failed", received[3].Event)
	assert.Equal(t, "boom", received[3].Error)
}

func TestWebhookNotifierSwallowsDeliveryFailure(t *testing.T) {
	// Nothing listens on this address; the notifier must not panic or block.
	n := NewWebhookNotifier("http://127.0.0.1:1/never", zap.NewNop())
	n.Started(context.Background(), crawl.Config{IndexName: "docs"})
}

func TestPrometheusNotifierCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	n, err := NewPrometheusNotifier(reg)
	require.NoError(t, err)

	cfg := crawl.Config{IndexName: "docs"}
	ctx := context.Background()

	n.Started(ctx, cfg)
	n.Progress(ctx, cfg, progress.Snapshot{PagesTraversed: 7, PagesExtracted: 4, DocumentsSent: 9})
	n.Completed(ctx, cfg, 9)

	assert.Equal(t, float64(1), testutil.ToFloat64(n.crawlsStarted))
	assert.Equal(t, float64(7), testutil.ToFloat64(n.pagesTraversed.WithLabelValues("docs")))
	assert.Equal(t, float64(4), testutil.ToFloat64(n.pagesExtracted.WithLabelValues("docs")))
	assert.Equal(t, float64(9), testutil.ToFloat64(n.documentsSent.WithLabelValues("docs")))
	assert.Equal(t, float64(9), testutil.ToFloat64(n.totalDocuments.WithLabelValues("docs")))
	assert.Equal(t, float64(1), testutil.ToFloat64(n.crawlsCompleted.WithLabelValues("success")))

	n.Failed(ctx, cfg, errors.New("boom"))
	assert.Equal(t, float64(1), testutil.ToFloat64(n.crawlsCompleted.WithLabelValues("error")))
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/ai"
	"github.com/crawldex/crawldex/internal/api"
	"github.com/crawldex/crawldex/internal/config"
	collyengine "github.com/crawldex/crawldex/internal/engine/colly"
	"github.com/crawldex/crawldex/internal/id/uuid"
	"github.com/crawldex/crawldex/internal/index/meili"
	"github.com/crawldex/crawldex/internal/logging"
	"github.com/crawldex/crawldex/internal/metrics"
	"github.com/crawldex/crawldex/internal/orchestrator"
	"github.com/crawldex/crawldex/internal/pipeline"
	"github.com/crawldex/crawldex/internal/progress"
	"github.com/crawldex/crawldex/internal/progress/sinks"
	"github.com/crawldex/crawldex/internal/sender"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one crawl to
// completion and exits.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run a crawl and publish the result",
		Long: `Walks the configured seed URLs, extracts search documents from every
eligible page, and publishes them to the target index. When the index already
exists the crawl writes to a staging index and swaps it in atomically.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return err
	}

	shutdownServer := startStatusServer(cfg, orch, logger)
	defer shutdownServer()

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}
	return nil
}

func buildOrchestrator(cfg config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	crawlCfg := cfg.CrawlSettings()

	var completer ai.Completer
	if cfg.AI.APIKey != "" {
		completer = ai.NewOpenAI(cfg.AI.APIKey, cfg.AI.Model)
	}

	runner, err := pipeline.NewRunner(crawlCfg, completer, uuid.NewGenerator(), logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	snd := sender.New(meili.New(cfg.Index.Host, cfg.Index.APIKey), crawlCfg, sender.Options{}, logger)

	eng := collyengine.New(collyengine.Config{
		UserAgent:   crawlCfg.UserAgent,
		MaxDepth:    crawlCfg.MaxDepth,
		Concurrency: cfg.Crawl.Concurrency,
		Delay:       time.Duration(cfg.Crawl.DelayMs) * time.Millisecond,
		Timeout:     time.Duration(cfg.Crawl.TimeoutSeconds) * time.Second,
	}, logger)

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	return orchestrator.New(crawlCfg, eng, runner, snd, notifier, logger)
}

func buildNotifier(cfg config.Config, logger *zap.Logger) (progress.Notifier, error) {
	notifiers := []progress.Notifier{sinks.NewLogNotifier(logger)}
	if cfg.Webhook.URL != "" {
		notifiers = append(notifiers, sinks.NewWebhookNotifier(cfg.Webhook.URL, logger))
	}
	prom, err := sinks.NewPrometheusNotifier(nil)
	if err != nil {
		return nil, fmt.Errorf("register crawl collectors: %w", err)
	}
	notifiers = append(notifiers, prom)
	return progress.NewMulti(notifiers...), nil
}

// startStatusServer serves /healthz, /progress and /metrics while the crawl
// runs. It returns a shutdown func; when the server is disabled both the
// start and the shutdown are no-ops.
func startStatusServer(cfg config.Config, orch *orchestrator.Orchestrator, logger *zap.Logger) func() {
	if !cfg.Server.Enabled {
		return func() {}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(orch.Snapshot, "", logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", zap.Error(err))
		}
	}()
	logger.Info("status server listening", zap.Int("port", cfg.Server.Port))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
}

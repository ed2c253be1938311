// Package orchestrator wires the fetch engine, classifier, feature pipeline
// and document sender into one crawl run and owns its telemetry.
package orchestrator

import (
	"context"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/classifier"
	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/engine"
	"github.com/crawldex/crawldex/internal/pipeline"
	"github.com/crawldex/crawldex/internal/progress"
	"github.com/crawldex/crawldex/internal/sender"
)

const defaultProgressInterval = 10 * time.Second

// Orchestrator runs one crawl to completion. It is single-use; build a fresh
// one per run.
type Orchestrator struct {
	cfg      crawl.Config
	engine   engine.Engine
	class    *classifier.Classifier
	detector *classifier.NotFoundDetector
	runner   *pipeline.Runner
	sender   *sender.Sender
	notifier progress.Notifier
	logger   *zap.Logger

	pagesTraversed atomic.Int64
	pagesExtracted atomic.Int64
	documentsSent  atomic.Int64
}

// New builds an Orchestrator. The notifier may be nil when nothing observes
// the crawl.
func New(
	cfg crawl.Config,
	eng engine.Engine,
	runner *pipeline.Runner,
	snd *sender.Sender,
	notifier progress.Notifier,
	logger *zap.Logger,
) (*Orchestrator, error) {
	class, err := classifier.New(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = progress.NewMulti()
	}
	return &Orchestrator{
		cfg:      cfg,
		engine:   eng,
		class:    class,
		detector: classifier.NewNotFoundDetector(cfg.NotFoundSelectors),
		runner:   runner,
		sender:   snd,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Run executes the crawl: initialize the target index, walk the frontier,
// then drain and publish. The Failed event always fires before an error is
// returned; Completed fires only after the index publish succeeded.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.notifier.Started(ctx, o.cfg)
	o.logger.Info("crawl starting",
		zap.Strings("seeds", o.cfg.Seeds),
		zap.String("index", o.cfg.IndexName),
	)

	if err := o.sender.Init(ctx); err != nil {
		o.notifier.Failed(ctx, o.cfg, err)
		return err
	}

	stopTicker := o.startProgressTicker(ctx)
	err := o.engine.Run(ctx, o.cfg.Seeds, o.handlePage)
	stopTicker()

	// One last snapshot on either path, so observers see the final counters
	// even when the crawl outlived fewer than one ticker interval.
	o.notifier.Progress(ctx, o.cfg, o.Snapshot())

	if err != nil {
		o.notifier.Failed(ctx, o.cfg, err)
		return err
	}

	if err := o.sender.Finish(ctx); err != nil {
		o.notifier.Failed(ctx, o.cfg, err)
		return err
	}

	total := o.sender.TotalSent()
	o.notifier.Completed(ctx, o.cfg, total)
	o.logger.Info("crawl completed",
		zap.Int64("pages_traversed", o.pagesTraversed.Load()),
		zap.Int64("pages_extracted", o.pagesExtracted.Load()),
		zap.Int64("documents_sent", total),
	)
	return nil
}

// Snapshot returns the current crawl counters.
func (o *Orchestrator) Snapshot() progress.Snapshot {
	return progress.Snapshot{
		PagesTraversed: o.pagesTraversed.Load(),
		PagesExtracted: o.pagesExtracted.Load(),
		DocumentsSent:  o.documentsSent.Load(),
	}
}

// handlePage processes one fetched page: count it, index its content when
// eligible, and return the in-scope links. A page whose content fails to
// extract still contributes its links; only a sender failure aborts the
// crawl.
func (o *Orchestrator) handlePage(ctx context.Context, page engine.Page) ([]string, error) {
	o.pagesTraversed.Add(1)

	if o.class.Extraction(page.URL) {
		if o.detector.Detect(page.Doc) {
			o.logger.Info("soft-404 page skipped", zap.String("url", page.URL))
		} else if err := o.extractPage(ctx, page); err != nil {
			return nil, err
		}
	}

	return o.collectLinks(page), nil
}

func (o *Orchestrator) extractPage(ctx context.Context, page engine.Page) error {
	o.pagesExtracted.Add(1)

	units, err := o.runner.Run(ctx, page.URL, page.Doc)
	if err != nil {
		o.logger.Warn("page extraction failed", zap.String("url", page.URL), zap.Error(err))
		return nil
	}
	for _, unit := range units {
		if err := o.sender.Add(ctx, unit); err != nil {
			return err
		}
		o.documentsSent.Add(1)
	}
	return nil
}

// collectLinks resolves, normalizes and filters the page's outbound links.
// Queries and fragments are stripped before scoping, file assets are dropped,
// and only traversal-eligible links survive.
func (o *Orchestrator) collectLinks(page engine.Page) []string {
	base, err := url.Parse(page.URL)
	if err != nil {
		o.logger.Warn("unparseable page url", zap.String("url", page.URL), zap.Error(err))
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	page.Doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		link, err := classifier.NormalizeURL(abs.String())
		if err != nil {
			return
		}
		if classifier.IsFileAsset(link) {
			return
		}
		if !o.class.Traversal(link) {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

func (o *Orchestrator) startProgressTicker(ctx context.Context) func() {
	interval := o.cfg.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.notifier.Progress(ctx, o.cfg, o.Snapshot())
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

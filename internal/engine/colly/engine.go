// Package collyengine implements engine.Engine on the Colly collector.
package collyengine

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/engine"
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	MaxDepth    int
	Concurrency int
	Delay       time.Duration
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "crawldex"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// Engine fetches pages with an async Colly collector. Fetching is
// concurrent; page handling is serialized so the handler never needs its own
// locking.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Colly-backed engine.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg.withDefaults(), logger: logger}
}

// Run implements engine.Engine.
func (e *Engine) Run(ctx context.Context, seeds []string, handle engine.PageFunc) error {
	collector := colly.NewCollector(
		colly.Async(true),
		colly.MaxDepth(e.cfg.MaxDepth),
		colly.UserAgent(e.cfg.UserAgent),
	)
	collector.AllowURLRevisit = false
	collector.SetRequestTimeout(e.cfg.Timeout)

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: e.cfg.Concurrency,
		Delay:       e.cfg.Delay,
	}); err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		fatal error
	)

	collector.OnRequest(func(r *colly.Request) {
		mu.Lock()
		aborted := fatal != nil
		mu.Unlock()
		if aborted || ctx.Err() != nil {
			r.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		contentType := strings.ToLower(r.Headers.Get("Content-Type"))
		if contentType != "" && !strings.Contains(contentType, "html") {
			return
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			e.logger.Warn("unparseable page skipped",
				zap.String("url", r.Request.URL.String()), zap.Error(err))
			return
		}

		mu.Lock()
		if fatal != nil {
			mu.Unlock()
			return
		}
		links, err := handle(ctx, engine.Page{URL: r.Request.URL.String(), Doc: doc})
		if err != nil {
			fatal = err
			mu.Unlock()
			return
		}
		mu.Unlock()

		for _, link := range links {
			// Revisit and depth errors are routine frontier noise.
			if err := r.Request.Visit(link); err != nil {
				e.logger.Debug("link not enqueued",
					zap.String("url", link), zap.Error(err))
			}
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		e.logger.Warn("request failed",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status_code", r.StatusCode),
			zap.Error(err),
		)
	})

	for _, seed := range seeds {
		if err := collector.Visit(seed); err != nil {
			e.logger.Error("seed visit failed", zap.String("url", seed), zap.Error(err))
		}
	}
	collector.Wait()

	mu.Lock()
	defer mu.Unlock()
	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}

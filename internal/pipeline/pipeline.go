// Package pipeline runs the ordered feature steps that turn a parsed page
// into publish units. Step order is fixed by data dependencies: base
// extraction always runs first and block splitting, when enabled, always
// last. Every other step is gated by its activation flag and URL patterns.
package pipeline

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/ai"
	"github.com/crawldex/crawldex/internal/classifier"
	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
)

// IDGenerator produces document ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Step is one content transformer. Apply receives the document produced by
// the previous step and returns an enriched copy. Steps own specific fields
// and must never remove what another step wrote; a failing step returns an
// error and the runner keeps the input document unchanged.
type Step interface {
	Name() string
	Gate(cfg crawl.Config) crawl.Gate
	Apply(ctx context.Context, page *goquery.Document, doc document.Page, cfg crawl.Config) (document.Page, error)
}

// Runner executes the fixed step sequence for one crawl configuration. Gate
// matchers are compiled once at construction.
type Runner struct {
	cfg    crawl.Config
	steps  []Step
	gates  map[string]*classifier.Matcher
	ids    IDGenerator
	logger *zap.Logger
}

// NewRunner builds a Runner for the crawl. The completer may be nil when no
// AI backend is configured; the AI steps then degrade to pass-through.
func NewRunner(cfg crawl.Config, completer ai.Completer, ids IDGenerator, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	steps := []Step{
		&metadataStep{},
		&selectorStep{},
		newMarkdownStep(),
		&schemaStep{},
		&aiExtractionStep{completer: completer},
		&aiSummaryStep{completer: completer},
	}
	gates := make(map[string]*classifier.Matcher, len(steps))
	for _, step := range steps {
		gate := step.Gate(cfg)
		matcher, err := NewGateMatcher(gate.IncludeURLs, gate.ExcludeURLs)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name(), err)
		}
		gates[step.Name()] = matcher
	}
	return &Runner{cfg: cfg, steps: steps, gates: gates, ids: ids, logger: logger}, nil
}

// NewGateMatcher compiles per-step URL patterns. Gate patterns match with the
// URL scheme stripped, so configs written without a scheme still apply.
func NewGateMatcher(includes, excludes []string) (*classifier.Matcher, error) {
	stripped := func(urls []string) []string {
		out := make([]string, 0, len(urls))
		for _, u := range urls {
			out = append(out, classifier.StripScheme(u))
		}
		return out
	}
	return classifier.NewMatcher(stripped(includes), stripped(excludes))
}

// Run builds the page document and applies every active step in order,
// returning the publish units for the page. Only base extraction can fail
// the page; step failures degrade to pass-through.
func (r *Runner) Run(ctx context.Context, url string, page *goquery.Document) ([]document.Unit, error) {
	doc, err := extractBase(url, page, r.ids)
	if err != nil {
		return nil, fmt.Errorf("base extraction: %w", err)
	}

	target := classifier.StripScheme(url)
	for _, step := range r.steps {
		if !step.Gate(r.cfg).Enabled {
			continue
		}
		if !r.gates[step.Name()].Match(target) {
			continue
		}
		next, err := step.Apply(ctx, page, doc, r.cfg)
		if err != nil {
			r.logger.Warn("pipeline step failed, keeping document unchanged",
				zap.String("step", step.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		doc = next
	}

	if r.cfg.Features.Split.Enabled {
		return splitUnits(doc, r.ids)
	}
	return []document.Unit{document.WholeUnit(doc)}, nil
}

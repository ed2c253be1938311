package pipeline

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
)

// selectorStep fills configured fields from the first element matching each
// CSS selector.
type selectorStep struct{}

func (s *selectorStep) Name() string { return "selectors" }

func (s *selectorStep) Gate(cfg crawl.Config) crawl.Gate {
	return cfg.Features.Selectors.Gate
}

func (s *selectorStep) Apply(_ context.Context, page *goquery.Document, doc document.Page, cfg crawl.Config) (document.Page, error) {
	selectors := cfg.Features.Selectors.Selectors
	if len(selectors) == 0 {
		return doc, nil
	}
	custom := make(map[string]string, len(doc.Custom))
	for k, v := range doc.Custom {
		custom[k] = v
	}
	for field, selector := range selectors {
		if selector == "" {
			continue
		}
		value := strings.TrimSpace(page.Find(selector).First().Text())
		if value != "" {
			custom[field] = cleanText(value)
		}
	}
	if len(custom) > 0 {
		doc.Custom = custom
	}
	return doc, nil
}

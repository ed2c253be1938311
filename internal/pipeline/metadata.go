package pipeline

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
)

// metadataStep captures <meta> name/property pairs onto the document.
type metadataStep struct{}

func (s *metadataStep) Name() string { return "metadata" }

func (s *metadataStep) Gate(cfg crawl.Config) crawl.Gate {
	return cfg.Features.Metadata.Gate
}

func (s *metadataStep) Apply(_ context.Context, page *goquery.Document, doc document.Page, _ crawl.Config) (document.Page, error) {
	meta := make(map[string]string, len(doc.Meta))
	for k, v := range doc.Meta {
		meta[k] = v
	}
	page.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key, ok := sel.Attr("name")
		if !ok || key == "" {
			key, _ = sel.Attr("property")
		}
		if key == "" {
			return
		}
		content, ok := sel.Attr("content")
		if !ok || content == "" {
			return
		}
		if _, exists := meta[key]; !exists {
			meta[key] = content
		}
	})
	if len(meta) > 0 {
		doc.Meta = meta
	}
	return doc, nil
}

package pipeline

import (
	"context"
	"errors"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
)

// markdownStep converts the page body to markdown.
type markdownStep struct {
	converter *md.Converter
}

func newMarkdownStep() *markdownStep {
	return &markdownStep{converter: md.NewConverter("", true, nil)}
}

func (s *markdownStep) Name() string { return "markdown" }

func (s *markdownStep) Gate(cfg crawl.Config) crawl.Gate {
	return cfg.Features.Markdown.Gate
}

func (s *markdownStep) Apply(_ context.Context, page *goquery.Document, doc document.Page, _ crawl.Config) (document.Page, error) {
	body := page.Find("body")
	if body.Length() == 0 {
		return doc, errors.New("page has no body element")
	}
	doc.Markdown = s.converter.Convert(body)
	return doc, nil
}

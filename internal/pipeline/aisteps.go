package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawldex/crawldex/internal/ai"
	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
)

// Every model call is bounded; a timeout is a step failure, not a pipeline
// failure.
const aiCallTimeout = 30 * time.Second

// aiExtractionStep asks the model for structured fields and merges the JSON
// response into the document.
type aiExtractionStep struct {
	completer ai.Completer
}

func (s *aiExtractionStep) Name() string { return "ai_extraction" }

func (s *aiExtractionStep) Gate(cfg crawl.Config) crawl.Gate {
	return cfg.Features.AIExtraction.Gate
}

func (s *aiExtractionStep) Apply(ctx context.Context, _ *goquery.Document, doc document.Page, cfg crawl.Config) (document.Page, error) {
	if s.completer == nil {
		return doc, errors.New("no completer configured")
	}
	opts := cfg.Features.AIExtraction
	if len(opts.Fields) == 0 {
		return doc, nil
	}

	prompt := opts.Prompt
	if prompt == "" {
		prompt = "Extract the following fields from the page content and reply with a single JSON object."
	}
	prompt = fmt.Sprintf("%s\nFields: %s\n\nContent:\n%s",
		prompt, strings.Join(opts.Fields, ", "), pageContent(doc))

	callCtx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()
	raw, err := s.completer.Complete(callCtx, prompt)
	if err != nil {
		return doc, fmt.Errorf("extraction call: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &fields); err != nil {
		return doc, fmt.Errorf("decode extraction response: %w", err)
	}

	extracted := make(map[string]string, len(doc.Extracted)+len(fields))
	for k, v := range doc.Extracted {
		extracted[k] = v
	}
	for k, v := range fields {
		extracted[k] = fmt.Sprintf("%v", v)
	}
	doc.Extracted = extracted
	return doc, nil
}

// aiSummaryStep asks the model for a short page summary.
type aiSummaryStep struct {
	completer ai.Completer
}

func (s *aiSummaryStep) Name() string { return "ai_summary" }

func (s *aiSummaryStep) Gate(cfg crawl.Config) crawl.Gate {
	return cfg.Features.AISummary.Gate
}

func (s *aiSummaryStep) Apply(ctx context.Context, _ *goquery.Document, doc document.Page, cfg crawl.Config) (document.Page, error) {
	if s.completer == nil {
		return doc, errors.New("no completer configured")
	}
	prompt := cfg.Features.AISummary.Prompt
	if prompt == "" {
		prompt = "Summarize the following page content in a few sentences."
	}
	prompt = prompt + "\n\nContent:\n" + pageContent(doc)

	callCtx, cancel := context.WithTimeout(ctx, aiCallTimeout)
	defer cancel()
	summary, err := s.completer.Complete(callCtx, prompt)
	if err != nil {
		return doc, fmt.Errorf("summary call: %w", err)
	}
	doc.Summary = strings.TrimSpace(summary)
	return doc, nil
}

// pageContent prefers the markdown rendition when an earlier step produced
// one, falling back to the flattened block text.
func pageContent(doc document.Page) string {
	if doc.Markdown != "" {
		return doc.Markdown
	}
	var sb strings.Builder
	sb.WriteString(doc.Title)
	for _, block := range doc.Blocks {
		for level := 1; level <= 6; level++ {
			if h := block.Heading(level); h != "" {
				sb.WriteString("\n")
				sb.WriteString(h)
			}
		}
		for _, t := range block.Text {
			sb.WriteString("\n")
			sb.WriteString(t)
		}
	}
	return sb.String()
}

// extractJSONObject trims markdown fences and surrounding prose that models
// commonly wrap around JSON replies.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

package pipeline

import (
	"context"
	"encoding/json"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
)

// schemaStep collects schema.org JSON-LD entities embedded in the page.
type schemaStep struct{}

func (s *schemaStep) Name() string { return "schema" }

func (s *schemaStep) Gate(cfg crawl.Config) crawl.Gate {
	return cfg.Features.Schema.Gate
}

func (s *schemaStep) Apply(_ context.Context, page *goquery.Document, doc document.Page, cfg crawl.Config) (document.Page, error) {
	onlyType := cfg.Features.Schema.OnlyType
	schemas := append([]map[string]any(nil), doc.Schemas...)

	page.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		for _, entity := range decodeEntities(sel.Text()) {
			if onlyType != "" && !hasType(entity, onlyType) {
				continue
			}
			schemas = append(schemas, entity)
		}
	})

	doc.Schemas = schemas
	return doc, nil
}

// decodeEntities accepts a JSON-LD payload holding either a single entity or
// an array of entities; malformed payloads are skipped.
func decodeEntities(raw string) []map[string]any {
	var single map[string]any
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		return []map[string]any{single}
	}
	var many []map[string]any
	if err := json.Unmarshal([]byte(raw), &many); err == nil {
		return many
	}
	return nil
}

func hasType(entity map[string]any, want string) bool {
	switch t := entity["@type"].(type) {
	case string:
		return t == want
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

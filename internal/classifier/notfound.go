package classifier

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Structural selectors that commonly mark an error page.
var notFoundSelectors = []string{
	".error-404",
	".not-found",
	".page-not-found",
	"#error-404",
	"[class*=\"error404\"]",
	"[data-error=\"404\"]",
}

// Case-insensitive body phrases that mark a soft-404 page.
var notFoundPhrases = []string{
	"page not found",
	"404 not found",
	"this page does not exist",
	"the page you requested could not be found",
	"sorry, we couldn't find that page",
	"nothing was found at this location",
}

// Heading text fragments checked on h1-h3 elements.
var notFoundHeadingFragments = []string{
	"404",
	"not found",
}

// NotFoundDetector flags pages that return success-like content but
// semantically say "not found". Custom selectors, when configured, replace
// the built-in heuristics entirely.
type NotFoundDetector struct {
	custom []string
}

// NewNotFoundDetector builds a detector from the configured selectors.
func NewNotFoundDetector(selectors []string) *NotFoundDetector {
	var custom []string
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel != "" {
			custom = append(custom, sel)
		}
	}
	return &NotFoundDetector{custom: custom}
}

// Detect reports whether the parsed page is a soft-404. It runs only on pages
// already selected for extraction.
func (d *NotFoundDetector) Detect(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	if len(d.custom) > 0 {
		for _, sel := range d.custom {
			if doc.Find(sel).Length() > 0 {
				return true
			}
		}
		return false
	}
	return d.matchesStructure(doc) || d.matchesPhrases(doc)
}

func (d *NotFoundDetector) matchesStructure(doc *goquery.Document) bool {
	for _, sel := range notFoundSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	found := false
	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		for _, fragment := range notFoundHeadingFragments {
			if strings.Contains(text, fragment) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func (d *NotFoundDetector) matchesPhrases(doc *goquery.Document) bool {
	body := strings.ToLower(doc.Find("body").Text())
	if body == "" {
		return false
	}
	for _, phrase := range notFoundPhrases {
		if strings.Contains(body, phrase) {
			return true
		}
	}
	return false
}

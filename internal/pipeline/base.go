package pipeline

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/crawldex/crawldex/internal/document"
)

// Elements walked by base extraction, in document order. Headings delimit
// blocks; everything else contributes text to the open block.
const contentSelector = "h1, h2, h3, h4, h5, h6, p, li, td, pre, blockquote"

var whitespaceRe = regexp.MustCompile(`\s+`)

// extractBase builds the initial page document skeleton from the page's
// heading/paragraph structure. A new block begins whenever a heading of
// equal-or-higher level than the deepest one in the open block appears; each
// heading resets all deeper levels in the running chain and carries the
// shallower ones forward onto subsequent blocks.
func extractBase(rawURL string, page *goquery.Document, ids IDGenerator) (document.Page, error) {
	id, err := ids.NewID()
	if err != nil {
		return document.Page{}, fmt.Errorf("generate page id: %w", err)
	}

	doc := document.Page{
		ID:  id,
		URL: rawURL,
	}
	if u, err := url.Parse(rawURL); err == nil {
		doc.Domain = u.Hostname()
	}
	doc.Title = cleanText(page.Find("title").First().Text())

	var (
		chain   document.Block
		deepest int
		text    []string
		seen    = map[string]struct{}{}
		blocks  []document.Block
	)

	flush := func() {
		if len(text) == 0 && deepest == 0 {
			return
		}
		block := chain
		block.Text = text
		blocks = append(blocks, block)
		text = nil
		seen = map[string]struct{}{}
	}

	page.Find("body").Find(contentSelector).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if level := headingLevel(tag); level > 0 {
			if level <= deepest {
				flush()
			}
			chain.SetHeading(level, cleanText(s.Text()))
			chain.ClearBelow(level)
			deepest = level
			return
		}
		t := ownText(s)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		text = append(text, t)
	})

	flush()
	doc.Blocks = blocks

	if doc.Title == "" && len(blocks) > 0 {
		doc.Title = blocks[0].H1
	}
	return doc, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// ownText returns the element's text minus the text of nested content
// elements, so a <li> wrapping a <p> does not report the paragraph twice.
func ownText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find(contentSelector).Remove()
	return cleanText(clone.Text())
}

func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

package classifier

import (
	"fmt"

	"github.com/crawldex/crawldex/internal/crawl"
)

// Classifier answers the two independent eligibility questions for a URL:
// should its links be followed, and should its content be indexed.
type Classifier struct {
	traversal  *Matcher
	extraction *Matcher
}

// New builds a Classifier from the crawl configuration. Traversal eligibility
// uses the seed list minus the exclude list; extraction eligibility uses the
// indexing include list (defaulting to the seeds) minus the not-index list.
func New(cfg crawl.Config) (*Classifier, error) {
	traversal, err := NewMatcher(cfg.Seeds, cfg.ExcludeURLs)
	if err != nil {
		return nil, fmt.Errorf("traversal matcher: %w", err)
	}
	extraction, err := NewMatcher(cfg.IndexIncludes(), cfg.NotIndexURLs)
	if err != nil {
		return nil, fmt.Errorf("extraction matcher: %w", err)
	}
	return &Classifier{traversal: traversal, extraction: extraction}, nil
}

// Traversal reports whether the URL's outbound links should be followed.
func (c *Classifier) Traversal(url string) bool {
	return c.traversal.Match(url)
}

// Extraction reports whether the URL's content should be indexed.
func (c *Classifier) Extraction(url string) bool {
	return c.extraction.Match(url)
}

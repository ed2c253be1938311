// Package engine defines the fetch-engine contract. An engine downloads
// pages starting from the seeds and hands each parsed page to a handler; the
// handler decides which discovered links the engine should visit next.
package engine

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched and parsed page.
type Page struct {
	// URL is the final request URL after redirects.
	URL string
	Doc *goquery.Document
}

// PageFunc processes one page and returns the absolute URLs to enqueue.
// Engines call it from a single goroutine at a time. A non-nil error aborts
// the crawl.
type PageFunc func(ctx context.Context, page Page) (enqueue []string, err error)

// Engine drives a crawl to completion. Run blocks until the frontier is
// exhausted, the handler fails, or the context is canceled.
type Engine interface {
	Run(ctx context.Context, seeds []string, handle PageFunc) error
}

// Package crawl defines the immutable per-crawl configuration shared by the
// classifier, feature pipeline, sender and orchestrator. The struct is built
// once at startup (from the viper-backed loader in internal/config) and never
// mutated afterwards.
package crawl

import "time"

// Gate holds the activation flag and URL scoping shared by every optional
// pipeline feature. Empty IncludeURLs means "match everything".
type Gate struct {
	Enabled     bool
	IncludeURLs []string
	ExcludeURLs []string
}

// MetadataOptions configures the <meta> tag capture step.
type MetadataOptions struct {
	Gate
}

// SelectorOptions configures the custom CSS selector step. Selectors maps an
// output field name to the CSS selector whose first match supplies its value.
type SelectorOptions struct {
	Gate
	Selectors map[string]string
}

// MarkdownOptions configures the HTML-to-markdown conversion step.
type MarkdownOptions struct {
	Gate
}

// SchemaOptions configures schema.org JSON-LD extraction. OnlyType, when set,
// keeps only entities whose @type matches.
type SchemaOptions struct {
	Gate
	OnlyType string
}

// AIExtractionOptions configures model-backed field extraction.
type AIExtractionOptions struct {
	Gate
	Fields []string
	Prompt string
}

// AISummaryOptions configures model-backed page summarization.
type AISummaryOptions struct {
	Gate
	Prompt string
}

// SplitOptions configures block splitting, the final pipeline step.
type SplitOptions struct {
	Gate
}

// Features groups the per-step configuration for the feature pipeline.
type Features struct {
	Metadata     MetadataOptions
	Selectors    SelectorOptions
	Markdown     MarkdownOptions
	Schema       SchemaOptions
	AIExtraction AIExtractionOptions
	AISummary    AISummaryOptions
	Split        SplitOptions
}

// Config captures every per-crawl setting. Seeds double as the default
// traversal include list; IndexURLs defaults to Seeds when empty.
type Config struct {
	Seeds        []string
	ExcludeURLs  []string
	IndexURLs    []string
	NotIndexURLs []string

	IndexName  string
	PrimaryKey string
	BatchSize  int
	// KeepIndexSettings carries the live index settings onto the staging
	// index created for this crawl.
	KeepIndexSettings bool

	// NotFoundSelectors, when set, replace the built-in soft-404 heuristics.
	NotFoundSelectors []string

	Features Features

	ProgressInterval time.Duration
	UserAgent        string
	MaxDepth         int
}

// IndexIncludes returns the indexing include list, falling back to the seed
// list when none is configured.
func (c Config) IndexIncludes() []string {
	if len(c.IndexURLs) > 0 {
		return c.IndexURLs
	}
	return c.Seeds
}

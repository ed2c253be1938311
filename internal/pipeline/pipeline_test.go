package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/ai"
	"github.com/crawldex/crawldex/internal/crawl"
)

const samplePage = `<html><head>
	<title>Widget docs</title>
	<meta name="description" content="All about widgets">
	<meta property="og:site_name" content="Widgetry">
	<script type="application/ld+json">{"@type":"Article","headline":"Widgets"}</script>
</head><body>
	<h1>Widgets</h1>
	<p>Widgets are small.</p>
	<h1>Gadgets</h1>
	<p>Gadgets are large.</p>
	<span class="byline">Jane Doe</span>
</body></html>`

func TestRunnerUnsplitProducesWholePage(t *testing.T) {
	r, err := NewRunner(crawl.Config{}, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)

	require.Len(t, units, 1)
	assert.Equal(t, "id-1", units[0].ID)
	assert.Empty(t, units[0].ParentID)
	assert.Len(t, units[0].Blocks, 2)
	// No step is active by default.
	assert.Empty(t, units[0].Meta)
	assert.Empty(t, units[0].Markdown)
}

func TestRunnerSplitSharesPageIDAsParent(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.Split.Enabled = true

	r, err := NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)

	require.Len(t, units, 2)
	ids := map[string]struct{}{}
	for i, u := range units {
		assert.Equal(t, "id-1", u.ParentID, "every child shares the page id")
		assert.Equal(t, i, u.Position)
		assert.Equal(t, "https://x.test/widgets", u.URL)
		_, dup := ids[u.ID]
		assert.False(t, dup, "child ids must be unique")
		ids[u.ID] = struct{}{}
	}
	assert.Equal(t, "Widgets", units[0].H1)
	assert.Equal(t, "Gadgets", units[1].H1)
}

func TestRunnerMetadataAndSchemaSteps(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.Metadata.Enabled = true
	cfg.Features.Schema.Enabled = true
	cfg.Features.Schema.OnlyType = "Article"

	r, err := NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)

	require.Len(t, units, 1)
	assert.Equal(t, "All about widgets", units[0].Meta["description"])
	assert.Equal(t, "Widgetry", units[0].Meta["og:site_name"])
	require.Len(t, units[0].Schemas, 1)
	assert.Equal(t, "Widgets", units[0].Schemas[0]["headline"])
}

func TestRunnerSelectorStep(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.Selectors.Enabled = true
	cfg.Features.Selectors.Selectors = map[string]string{"author": ".byline"}

	r, err := NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", units[0].Custom["author"])
}

func TestRunnerMarkdownStep(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.Markdown.Enabled = true

	r, err := NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.Contains(t, units[0].Markdown, "# Widgets")
	assert.Contains(t, units[0].Markdown, "Widgets are small.")
}

func TestRunnerStepGatingByURL(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.Metadata.Enabled = true
	// Patterns are configured without a scheme; matching strips it too.
	cfg.Features.Metadata.IncludeURLs = []string{"x.test/docs"}

	r, err := NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	inScope, err := r.Run(context.Background(), "https://x.test/docs/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.NotEmpty(t, inScope[0].Meta)

	outOfScope, err := r.Run(context.Background(), "https://x.test/blog/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.Empty(t, outOfScope[0].Meta)
}

func TestRunnerStepExcludeWins(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.Metadata.Enabled = true
	cfg.Features.Metadata.IncludeURLs = []string{"x.test/docs"}
	cfg.Features.Metadata.ExcludeURLs = []string{"x.test/docs/legacy"}

	r, err := NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/docs/legacy/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.Empty(t, units[0].Meta)
}

func TestRunnerAIExtraction(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.AIExtraction.Enabled = true
	cfg.Features.AIExtraction.Fields = []string{"author"}

	completer := &ai.Static{Response: `{"author":"Jane Doe"}`}
	r, err := NewRunner(cfg, completer, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", units[0].Extracted["author"])
	require.Len(t, completer.Prompts, 1)
	assert.Contains(t, completer.Prompts[0], "author")
}

func TestRunnerAISummary(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.AISummary.Enabled = true

	r, err := NewRunner(cfg, &ai.Static{Response: "Widgets in brief."}, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.Equal(t, "Widgets in brief.", units[0].Summary)
}

func TestRunnerStepFailureDegradesToPassThrough(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.AIExtraction.Enabled = true
	cfg.Features.AIExtraction.Fields = []string{"author"}
	cfg.Features.AISummary.Enabled = true

	// Both AI calls fail; the page must still publish unchanged.
	r, err := NewRunner(cfg, &ai.Static{Err: errors.New("model unavailable")}, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Empty(t, units[0].Extracted)
	assert.Empty(t, units[0].Summary)
	assert.Len(t, units[0].Blocks, 2)
}

func TestRunnerDisabledCompleterIsStepLocal(t *testing.T) {
	cfg := crawl.Config{}
	cfg.Features.AISummary.Enabled = true

	r, err := NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)

	units, err := r.Run(context.Background(), "https://x.test/widgets", parseHTML(t, samplePage))
	require.NoError(t, err)
	assert.Empty(t, units[0].Summary)
}

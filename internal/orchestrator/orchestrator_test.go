package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
	"github.com/crawldex/crawldex/internal/engine"
	"github.com/crawldex/crawldex/internal/index/memory"
	"github.com/crawldex/crawldex/internal/pipeline"
	"github.com/crawldex/crawldex/internal/progress"
	"github.com/crawldex/crawldex/internal/sender"
)

// stubEngine serves a fixed URL-to-HTML site with a breadth-first frontier,
// revisit suppression included, mirroring the real collector's contract.
type stubEngine struct {
	pages   map[string]string
	visited []string
}

func (e *stubEngine) Run(ctx context.Context, seeds []string, handle engine.PageFunc) error {
	queue := append([]string(nil), seeds...)
	seen := make(map[string]struct{})
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		html, ok := e.pages[u]
		if !ok {
			continue
		}
		e.visited = append(e.visited, u)
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return err
		}
		links, err := handle(ctx, engine.Page{URL: u, Doc: doc})
		if err != nil {
			return err
		}
		queue = append(queue, links...)
	}
	return nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   int
	snaps     []progress.Snapshot
	completed []int64
	failed    []error
}

func (r *recordingNotifier) Started(context.Context, crawl.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingNotifier) Progress(_ context.Context, _ crawl.Config, snap progress.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recordingNotifier) Completed(_ context.Context, _ crawl.Config, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, total)
}

func (r *recordingNotifier) Failed(_ context.Context, _ crawl.Config, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, err)
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "id-" + strings.Repeat("x", s.n), nil
}

func newTestOrchestrator(t *testing.T, cfg crawl.Config, eng engine.Engine, client *memory.Client, notifier progress.Notifier) (*Orchestrator, *sender.Sender) {
	t.Helper()
	runner, err := pipeline.NewRunner(cfg, nil, &seqIDs{}, zap.NewNop())
	require.NoError(t, err)
	snd := sender.New(client, cfg, sender.Options{
		MaxFlushRetries: 1,
		FlushBaseDelay:  time.Millisecond,
		FlushMaxDelay:   time.Millisecond,
		DrainTimeout:    time.Second,
	}, zap.NewNop())
	o, err := New(cfg, eng, runner, snd, notifier, zap.NewNop())
	require.NoError(t, err)
	return o, snd
}

func TestRunFollowsOnlySeedScope(t *testing.T) {
	eng := &stubEngine{pages: map[string]string{
		"https://x.test/docs": `<html><head><title>Docs</title></head><body>
			<h1>Docs</h1><p>Index page</p>
			<a href="/docs/a">A</a>
			<a href="/blog/post">Off-scope</a>
			<a href="/docs/manual.pdf">PDF</a>
			<a href="mailto:team@x.test">Mail</a>
		</body></html>`,
		"https://x.test/docs/a": `<html><head><title>A</title></head><body>
			<h1>A</h1><p>Leaf page</p>
		</body></html>`,
		"https://x.test/blog/post": `<html><body><h1>Blog</h1></body></html>`,
	}}
	cfg := crawl.Config{
		Seeds:     []string{"https://x.test/docs"},
		IndexName: "docs",
		BatchSize: 10,
	}
	notifier := &recordingNotifier{}
	client := memory.New()

	o, _ := newTestOrchestrator(t, cfg, eng, client, notifier)
	require.NoError(t, o.Run(context.Background()))

	assert.Equal(t, []string{"https://x.test/docs", "https://x.test/docs/a"}, eng.visited)

	snap := o.Snapshot()
	assert.Equal(t, int64(2), snap.PagesTraversed)
	assert.Equal(t, int64(2), snap.PagesExtracted)
	assert.Equal(t, int64(2), snap.DocumentsSent)

	assert.Len(t, client.Docs("docs"), 2)
	assert.Equal(t, 1, notifier.started)
	require.Len(t, notifier.completed, 1)
	assert.Equal(t, int64(2), notifier.completed[0])
	assert.Empty(t, notifier.failed)
}

func TestRunSoft404LinksFollowedButNotIndexed(t *testing.T) {
	eng := &stubEngine{pages: map[string]string{
		"https://x.test/docs": `<html><body>
			<h1>Page not found</h1>
			<p>Sorry, we couldn't find that page.</p>
			<a href="/docs/a">Try the manual</a>
		</body></html>`,
		"https://x.test/docs/a": `<html><head><title>A</title></head><body>
			<h1>Manual</h1><p>Real content</p>
		</body></html>`,
	}}
	cfg := crawl.Config{
		Seeds:     []string{"https://x.test/docs"},
		IndexName: "docs",
		BatchSize: 10,
	}
	client := memory.New()

	o, _ := newTestOrchestrator(t, cfg, eng, client, &recordingNotifier{})
	require.NoError(t, o.Run(context.Background()))

	snap := o.Snapshot()
	assert.Equal(t, int64(2), snap.PagesTraversed)
	assert.Equal(t, int64(1), snap.PagesExtracted, "soft-404 pages are traversed, never extracted")
	assert.Equal(t, int64(1), snap.DocumentsSent)

	docs := client.Docs("docs")
	require.Len(t, docs, 1)
	assert.Equal(t, "https://x.test/docs/a", docs[0].URL)
}

func TestRunStripsQueryAndFragmentBeforeDedup(t *testing.T) {
	eng := &stubEngine{pages: map[string]string{
		"https://x.test/docs": `<html><body><h1>Docs</h1>
			<a href="/docs/a?utm_source=nav#intro">A tracked</a>
			<a href="/docs/a">A plain</a>
		</body></html>`,
		"https://x.test/docs/a": `<html><body><h1>A</h1><p>Leaf</p></body></html>`,
	}}
	cfg := crawl.Config{
		Seeds:     []string{"https://x.test/docs"},
		IndexName: "docs",
		BatchSize: 10,
	}

	o, _ := newTestOrchestrator(t, cfg, eng, memory.New(), &recordingNotifier{})
	require.NoError(t, o.Run(context.Background()))

	assert.Equal(t, []string{"https://x.test/docs", "https://x.test/docs/a"}, eng.visited)
}

func TestRunExtractionScopeIndependentOfTraversal(t *testing.T) {
	eng := &stubEngine{pages: map[string]string{
		"https://x.test/docs": `<html><body><h1>Docs</h1>
			<a href="/docs/internal/a">Internal</a>
		</body></html>`,
		"https://x.test/docs/internal/a": `<html><body><h1>Internal</h1><p>Hidden</p></body></html>`,
	}}
	cfg := crawl.Config{
		Seeds:        []string{"https://x.test/docs"},
		NotIndexURLs: []string{"https://x.test/docs/internal"},
		IndexName:    "docs",
		BatchSize:    10,
	}
	client := memory.New()

	o, _ := newTestOrchestrator(t, cfg, eng, client, &recordingNotifier{})
	require.NoError(t, o.Run(context.Background()))

	snap := o.Snapshot()
	assert.Equal(t, int64(2), snap.PagesTraversed)
	assert.Equal(t, int64(1), snap.PagesExtracted)

	docs := client.Docs("docs")
	require.Len(t, docs, 1)
	assert.Equal(t, "https://x.test/docs", docs[0].URL)
}

func TestRunSenderFailureAbortsAndNotifiesFailed(t *testing.T) {
	eng := &stubEngine{pages: map[string]string{
		"https://x.test/docs": `<html><body><h1>Docs</h1><p>Content</p>
			<a href="/docs/a">A</a>
		</body></html>`,
		"https://x.test/docs/a": `<html><body><h1>A</h1><p>More</p></body></html>`,
	}}
	cfg := crawl.Config{
		Seeds:     []string{"https://x.test/docs"},
		IndexName: "docs",
		BatchSize: 1,
	}
	notifier := &recordingNotifier{}
	client := memory.New()

	o, _ := newTestOrchestrator(t, cfg, eng, client, notifier)

	// Every write fails and the retry budget is tiny, so the first page's
	// flush poisons the sender and the crawl aborts.
	client.FailAddAttempts = 100
	err := o.Run(context.Background())
	require.Error(t, err)

	assert.Empty(t, notifier.completed)
	require.NotEmpty(t, notifier.failed)

	var flushErr *sender.FlushError
	assert.ErrorAs(t, notifier.failed[0], &flushErr)
}

func TestRunEmptyCrawlPreservesLiveIndex(t *testing.T) {
	eng := &stubEngine{pages: map[string]string{}}
	cfg := crawl.Config{
		Seeds:     []string{"https://x.test/docs"},
		IndexName: "docs",
		BatchSize: 2,
	}
	notifier := &recordingNotifier{}
	client := memory.New()
	client.Seed("docs", "id", docsOf(10))

	o, _ := newTestOrchestrator(t, cfg, eng, client, notifier)
	require.NoError(t, o.Run(context.Background()))

	assert.Len(t, client.Docs("docs"), 10)
	exists, err := client.Exists(context.Background(), "docs"+sender.StagingSuffix)
	require.NoError(t, err)
	assert.False(t, exists)

	require.Len(t, notifier.completed, 1)
	assert.Equal(t, int64(0), notifier.completed[0])
}

func TestProgressTickerEmitsSnapshots(t *testing.T) {
	eng := &stubEngine{pages: map[string]string{
		"https://x.test/docs": `<html><body><h1>Docs</h1><p>Content</p></body></html>`,
	}}
	cfg := crawl.Config{
		Seeds:            []string{"https://x.test/docs"},
		IndexName:        "docs",
		BatchSize:        10,
		ProgressInterval: time.Millisecond,
	}
	notifier := &recordingNotifier{}

	slow := &slowEngine{inner: eng, delay: 20 * time.Millisecond}
	o, _ := newTestOrchestrator(t, cfg, slow, memory.New(), notifier)
	require.NoError(t, o.Run(context.Background()))

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.NotEmpty(t, notifier.snaps)
}

// slowEngine delays completion so the progress ticker gets a chance to fire.
type slowEngine struct {
	inner engine.Engine
	delay time.Duration
}

func (e *slowEngine) Run(ctx context.Context, seeds []string, handle engine.PageFunc) error {
	if err := e.inner.Run(ctx, seeds, handle); err != nil {
		return err
	}
	time.Sleep(e.delay)
	return nil
}

func docsOf(n int) []document.Unit {
	out := make([]document.Unit, n)
	for i := range out {
		out[i] = document.Unit{ID: "seed-" + strings.Repeat("i", i+1)}
	}
	return out
}

package classifier

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePage(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestNotFoundDetectorBuiltins(t *testing.T) {
	d := NewNotFoundDetector(nil)

	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			name: "heading with 404",
			html: "<html><body><h1>404</h1></body></html>",
			want: true,
		},
		{
			name: "heading with not found",
			html: "<html><body><h2>Page Not Found</h2></body></html>",
			want: true,
		},
		{
			name: "error css class",
			html: `<html><body><div class="error-404">oops</div></body></html>`,
			want: true,
		},
		{
			name: "body phrase",
			html: "<html><body><p>Sorry, page not found here.</p></body></html>",
			want: true,
		},
		{
			name: "clean page",
			html: "<html><body><h1>Install guide</h1><p>Run the installer.</p></body></html>",
			want: false,
		},
		{
			// Plain body text mentioning 404 without a phrase or heading
			// match must not trip the detector.
			name: "404 in paragraph only",
			html: "<html><body><p>HTTP 404 is a status code.</p></body></html>",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(parsePage(t, tt.html)))
		})
	}
}

func TestNotFoundDetectorCustomSelectorsReplaceBuiltins(t *testing.T) {
	d := NewNotFoundDetector([]string{".missing-content"})

	// Custom selector match marks the page not-found.
	assert.True(t, d.Detect(parsePage(t, `<html><body><div class="missing-content"></div></body></html>`)))

	// Built-in signals are ignored once custom selectors are configured.
	assert.False(t, d.Detect(parsePage(t, "<html><body><h1>404</h1></body></html>")))
}

func TestNotFoundDetectorNilDocument(t *testing.T) {
	d := NewNotFoundDetector(nil)
	assert.False(t, d.Detect(nil))
}

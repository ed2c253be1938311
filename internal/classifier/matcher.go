// Package classifier decides, for a loaded URL, whether it should be
// traversed and/or extracted, filters file assets out of link discovery, and
// detects soft-404 pages.
package classifier

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher evaluates a URL against a positive and a negative glob set. A URL
// matches when it matches any include pattern and no exclude pattern. An
// empty include set matches everything; excludes always win.
type Matcher struct {
	includes []glob.Glob
	excludes []glob.Glob
}

// NewMatcher compiles the configured URLs into a Matcher. Each URL expands to
// two patterns: the URL itself, and the URL with a recursive wildcard
// appended after its trailing path segment.
func NewMatcher(includes, excludes []string) (*Matcher, error) {
	inc, err := compilePatterns(includes)
	if err != nil {
		return nil, fmt.Errorf("compile include patterns: %w", err)
	}
	exc, err := compilePatterns(excludes)
	if err != nil {
		return nil, fmt.Errorf("compile exclude patterns: %w", err)
	}
	return &Matcher{includes: inc, excludes: exc}, nil
}

// Match reports whether the URL is selected by this matcher.
func (m *Matcher) Match(url string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.excludes {
		if g.Match(url) {
			return false
		}
	}
	if len(m.includes) == 0 {
		return true
	}
	for _, g := range m.includes {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// ExpandPatterns returns the glob pair derived from one configured URL: the
// exact URL, and the URL covering everything beneath its trailing segment.
func ExpandPatterns(url string) []string {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if strings.HasSuffix(url, "/") {
		return []string{url, url + "**"}
	}
	return []string{url, url + "/**"}
}

// StripScheme removes the URL scheme so patterns configured without one still
// match. Used by the per-feature gates.
func StripScheme(url string) string {
	if idx := strings.Index(url, "://"); idx >= 0 {
		return url[idx+len("://"):]
	}
	return url
}

func compilePatterns(urls []string) ([]glob.Glob, error) {
	var globs []glob.Glob
	for _, u := range urls {
		for _, pattern := range ExpandPatterns(u) {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			globs = append(globs, g)
		}
	}
	return globs, nil
}

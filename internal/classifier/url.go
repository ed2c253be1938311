package classifier

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a discovered link before re-enqueueing. It
// lowercases the scheme and host, removes default ports, and strips the query
// string and fragment so the same page is never queued twice under aliases.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

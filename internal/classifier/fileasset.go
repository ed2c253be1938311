package classifier

import (
	"net/url"
	"path"
	"strings"
)

// Non-HTML file extensions dropped from link enqueueing before any
// include/exclude rule is consulted.
var assetExtensions = map[string]struct{}{
	// documents
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".ppt": {}, ".pptx": {}, ".odt": {}, ".rtf": {},
	// archives
	".zip": {}, ".tar": {}, ".gz": {}, ".tgz": {}, ".bz2": {},
	".rar": {}, ".7z": {},
	// images
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
	".webp": {}, ".ico": {}, ".bmp": {}, ".tiff": {},
	// audio/video
	".mp3": {}, ".wav": {}, ".ogg": {}, ".mp4": {}, ".avi": {},
	".mov": {}, ".wmv": {}, ".flv": {}, ".mkv": {}, ".webm": {},
	// data formats
	".json": {}, ".xml": {}, ".csv": {}, ".rss": {}, ".atom": {},
	".yaml": {}, ".yml": {},
	// styles/scripts/fonts
	".css": {}, ".js": {}, ".mjs": {}, ".woff": {}, ".woff2": {},
	".ttf": {}, ".eot": {}, ".otf": {},
	// executables and images of disks
	".exe": {}, ".dmg": {}, ".bin": {}, ".iso": {}, ".apk": {},
	".msi": {},
}

// IsFileAsset reports whether the URL path (query string stripped) ends in a
// known non-HTML file extension. Matching URLs never consume a traversal slot.
func IsFileAsset(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if idx := strings.IndexByte(p, '?'); idx >= 0 {
		p = p[:idx]
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	_, ok := assetExtensions[ext]
	return ok
}

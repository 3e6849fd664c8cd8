package routematch

import (
	"path"
	"strings"
)

// Defaults for the inclusion filter
var (
	DefaultSkipPrefixes   = []string{"/_next"}
	DefaultAlwaysPrefixes = []string{"/api", "/trpc"}

	DefaultStaticExtensions = []string{
		"html", "htm", "css", "js",
		"jpeg", "jpg", "webp", "png", "gif", "svg", "ico",
		"ttf", "woff", "woff2",
		"csv", "doc", "docx", "xls", "xlsx", "zip",
		"webmanifest",
	}
)

// Filter decides which requests the guard runs for. Framework internals and
// static assets are skipped; API prefixes are always included.
type Filter struct {
	skipPrefixes   []string
	alwaysPrefixes []string
	staticExts     map[string]struct{}
}

// NewFilter creates a filter. Extensions are matched case-insensitively and
// may be given with or without the leading dot.
func NewFilter(skipPrefixes, alwaysPrefixes, staticExtensions []string) *Filter {
	exts := make(map[string]struct{}, len(staticExtensions))
	for _, ext := range staticExtensions {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if ext != "" {
			exts[ext] = struct{}{}
		}
	}

	return &Filter{
		skipPrefixes:   append([]string(nil), skipPrefixes...),
		alwaysPrefixes: append([]string(nil), alwaysPrefixes...),
		staticExts:     exts,
	}
}

// DefaultFilter returns the filter built from the package defaults
func DefaultFilter() *Filter {
	return NewFilter(DefaultSkipPrefixes, DefaultAlwaysPrefixes, DefaultStaticExtensions)
}

// Includes reports whether the guard should run for the request path
func (f *Filter) Includes(p string) bool {
	for _, prefix := range f.alwaysPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}

	for _, prefix := range f.skipPrefixes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if _, static := f.staticExts[ext]; static {
		return false
	}

	return true
}

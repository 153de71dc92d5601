// Package crawl — URL rules.
// Helpers to filter and normalize URLs and to map between site URLs and
// slug paths.
package crawl

import (
	"net/url"
	"path"
	"strings"
)

// staticExtensions are file extensions that never hold a page.
var staticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true, ".bmp": true,
	".css": true, ".js": true, ".mjs": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true,
	".zip": true, ".tar": true, ".gz": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// IsSameDomain checks if the given URL belongs to the specified host.
func IsSameDomain(rawURL string, domain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Host == domain
}

// IsStaticAsset checks if a URL points to a static asset (image, CSS, JS, etc.).
func IsStaticAsset(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return staticExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

// NormalizeURL strips fragments and trailing slashes for deduplication.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}

// JoinSlug returns the page URL for a slug on the site at base. Slugs are
// resolved against the site root whether or not they start with "/".
func JoinSlug(base, slug string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse("/" + strings.TrimPrefix(slug, "/"))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

// SlugOf returns the slug path of a page URL: "/" for the site root.
func SlugOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}

// Segments splits a slug path into its non-empty segments.
func Segments(slug string) []string {
	var segs []string
	for _, s := range strings.Split(slug, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Package crawl discovers the pages of a live site for the scrape command.
// Pages come from sitemap.xml (including sitemap indexes) when the site
// publishes one, otherwise from a breadth-first walk of internal links.
package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/dumppipe/core"
)

// DefaultMaxPages bounds a link crawl.
const DefaultMaxPages = 100

// maxSitemaps bounds how many child sitemaps of an index are read.
const maxSitemaps = 50

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// sitemapDoc decodes both <urlset> and <sitemapindex> roots.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapURL `xml:"url"`
	Sitemaps []sitemapURL `xml:"sitemap"`
}

// Discoverer finds internal pages of a site.
type Discoverer struct {
	fetcher  core.Fetcher
	maxPages int
}

// NewDiscoverer creates a Discoverer. maxPages <= 0 selects DefaultMaxPages.
func NewDiscoverer(fetcher core.Fetcher, maxPages int) *Discoverer {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Discoverer{fetcher: fetcher, maxPages: maxPages}
}

// Discover returns the internal page URLs of the site at baseURL, sitemap
// first, link crawl as fallback. The crawl always includes baseURL.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) ([]string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("parsing base URL %q: invalid", baseURL)
	}
	domain := parsed.Host

	sitemap := fmt.Sprintf("%s://%s/sitemap.xml", parsed.Scheme, domain)
	urls, err := d.fromSitemap(ctx, sitemap, domain)
	if err == nil && len(urls) > 0 {
		return urls, nil
	}
	return d.fromLinks(ctx, baseURL, domain)
}

func (d *Discoverer) fromSitemap(ctx context.Context, sitemapURL, domain string) ([]string, error) {
	q := newQueue()
	pending := []string{sitemapURL}
	for read := 0; len(pending) > 0 && read < maxSitemaps; read++ {
		current := pending[0]
		pending = pending[1:]

		result, err := d.fetcher.Fetch(ctx, current)
		if err != nil {
			if read == 0 {
				return nil, err
			}
			continue
		}
		var doc sitemapDoc
		if err := xml.Unmarshal([]byte(result.HTML), &doc); err != nil {
			if read == 0 {
				return nil, fmt.Errorf("decoding %s: %w", current, err)
			}
			continue
		}
		for _, s := range doc.Sitemaps {
			if IsSameDomain(s.Loc, domain) {
				pending = append(pending, strings.TrimSpace(s.Loc))
			}
		}
		for _, u := range doc.URLs {
			loc := strings.TrimSpace(u.Loc)
			if IsSameDomain(loc, domain) && !IsStaticAsset(loc) {
				q.add(NormalizeURL(loc))
			}
		}
	}
	return q.all(), nil
}

func (d *Discoverer) fromLinks(ctx context.Context, startURL, domain string) ([]string, error) {
	q := newQueue()
	q.add(NormalizeURL(startURL))

	for q.hasNext() && q.visited() < d.maxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := q.next()

		result, err := d.fetcher.Fetch(ctx, current)
		if err != nil {
			continue
		}
		links, err := extractLinks(result.HTML, current)
		if err != nil {
			continue
		}
		for _, link := range links {
			if IsSameDomain(link, domain) && !IsStaticAsset(link) {
				q.add(NormalizeURL(link))
			}
		}
	}

	urls := q.all()
	if len(urls) > d.maxPages {
		urls = urls[:d.maxPages]
	}
	return urls, nil
}

// extractLinks extracts all href values from <a> tags, resolving relative URLs.
func extractLinks(html string, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if resolved := resolveURL(href, base); resolved != "" {
			links = append(links, resolved)
		}
	})
	return links, nil
}

// resolveURL resolves a potentially relative URL against a base.
func resolveURL(href string, base *url.URL) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	for _, scheme := range []string{"mailto:", "javascript:", "tel:"} {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return ""
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}

// queue is a BFS queue that drops URLs it has already seen.
type queue struct {
	items []string
	seen  map[string]bool
	idx   int
}

func newQueue() *queue {
	return &queue{seen: make(map[string]bool)}
}

func (q *queue) add(u string) {
	if q.seen[u] {
		return
	}
	q.seen[u] = true
	q.items = append(q.items, u)
}

func (q *queue) hasNext() bool { return q.idx < len(q.items) }

func (q *queue) next() string {
	u := q.items[q.idx]
	q.idx++
	return u
}

func (q *queue) visited() int { return len(q.seen) }

func (q *queue) all() []string { return q.items }

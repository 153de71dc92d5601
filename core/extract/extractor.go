// Package extract implements the Extractor interface.
// It isolates the main content of a rendered page by:
//  1. Removing chrome and noise (scripts, navigation, forms, ads)
//  2. Picking the best content container (<main>, <article>, a MODX-style
//     #content block, or <body>)
//
// Images are kept: their asset paths are migrated like any other body.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed before extraction.
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "footer", "header",
	"iframe", "svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".breadcrumb", ".ads", ".advertisement", ".cookie-banner",
}

// containers are tried in order; the first match wins.
var containers = []string{"main", "article", "#content", ".content", "body"}

// Page is the extracted content of one scraped page.
type Page struct {
	Title       string
	Description string
	Language    string
	Content     string // HTML fragment
}

// HTMLExtractor strips noise from HTML and returns the main content fragment.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract returns the cleaned main content fragment of a page.
func (e *HTMLExtractor) Extract(html string) (string, error) {
	page, err := e.ExtractPage(html)
	if err != nil {
		return "", err
	}
	return page.Content, nil
}

// ExtractPage returns the page metadata and its main content fragment.
// The title comes from <title>, falling back to the first <h1>.
func (e *HTMLExtractor) ExtractPage(html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parsing HTML: %w", err)
	}

	page := Page{
		Title:       collapse(doc.Find("head title").First().Text()),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		Language:    doc.Find("html").AttrOr("lang", ""),
	}
	if page.Title == "" {
		page.Title = collapse(doc.Find("h1").First().Text())
	}

	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, sel := range containers {
		if s := doc.Find(sel); s.Length() > 0 {
			content = s.First()
			break
		}
	}
	if content == nil {
		return Page{}, fmt.Errorf("no content container found in HTML")
	}

	inner, err := content.Html()
	if err != nil {
		return Page{}, fmt.Errorf("serializing content: %w", err)
	}
	page.Content = strings.TrimSpace(inner)
	return page, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

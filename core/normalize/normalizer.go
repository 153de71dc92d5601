// Package normalize implements the Normalizer interface.
// It converts processed HTML bodies into Markdown for sites that want
// Markdown content instead of raw HTML. The pipeline's own marker comments
// (chunk boundaries, neutralized tags) survive the conversion verbatim.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// markerComment matches the comments emitted by the tag resolver.
var markerComment = regexp.MustCompile(`(?s)<!-- (?:MODX tag \(not executable\)|chunk|/chunk|unresolved chunk): .*? -->`)

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct{}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

// Normalize converts an HTML fragment into Markdown.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	// The converter drops comments; park markers behind inert placeholders.
	var kept []string
	parked := markerComment.ReplaceAllStringFunc(html, func(m string) string {
		kept = append(kept, m)
		return placeholder(len(kept) - 1)
	})

	markdown, err := htmltomarkdown.ConvertString(parked)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}

	if len(kept) == 0 {
		return markdown, nil
	}
	pairs := make([]string, 0, 2*len(kept))
	for i, m := range kept {
		pairs = append(pairs, placeholder(i), m)
	}
	return strings.NewReplacer(pairs...).Replace(markdown), nil
}

func placeholder(i int) string {
	return fmt.Sprintf("DUMPPIPEMARKER%dX", i)
}

// Package render — JSON renderer.
// Emits one structured record per document: identity, ordered frontmatter,
// the body, its plain text, structural outline (headings, links) and
// fixed-size passages for search indexing.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/dumppipe/core"
	"github.com/gaurav-prasanna/dumppipe/core/passage"
)

// Heading is one heading found in a body.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is one hyperlink found in a body.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Structure is the outline of a body.
type Structure struct {
	Headings []Heading `json:"headings"`
	Links    []Link    `json:"links"`
}

// Record is the JSON form of a document.
type Record struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Segments    []string   `json:"segments"`
	Frontmatter OrderedMap `json:"frontmatter"`
	Body        string     `json:"body"`
	Text        string     `json:"text"`
	Structure   Structure  `json:"structure"`
	Passages    []string   `json:"passages,omitempty"`
}

// OrderedMap marshals fields as a JSON object in field order.
type OrderedMap []core.Field

// MarshalJSON implements json.Marshaler.
func (m OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSONRenderer produces one JSON record per document.
type JSONRenderer struct {
	markdownBody bool
	passages     *passage.Splitter
}

// NewJSONRenderer creates a JSONRenderer. markdownBody selects Markdown
// outline parsing instead of HTML; passageSize 0 disables passages.
func NewJSONRenderer(markdownBody bool, passageSize int) *JSONRenderer {
	r := &JSONRenderer{markdownBody: markdownBody}
	if passageSize > 0 {
		r.passages = passage.New(passageSize)
	}
	return r
}

// Render builds the record for doc.
func (r *JSONRenderer) Render(doc core.Document) ([]byte, error) {
	rec := Record{
		ID:          doc.ID,
		Slug:        doc.Slug,
		Segments:    doc.Segments,
		Frontmatter: OrderedMap(doc.Frontmatter()),
		Body:        doc.Body,
	}

	if r.markdownBody {
		rec.Text = stripMarkdown(doc.Body)
		rec.Structure = Structure{Headings: markdownHeadings(doc.Body), Links: markdownLinks(doc.Body)}
	} else {
		text, structure, err := htmlOutline(doc.Body)
		if err != nil {
			return nil, fmt.Errorf("outlining resource %d: %w", doc.ID, err)
		}
		rec.Text, rec.Structure = text, structure
	}
	if r.passages != nil {
		rec.Passages = r.passages.Split(rec.Text)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// --- HTML outline ---

func htmlOutline(body string) (string, Structure, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", Structure{}, fmt.Errorf("parsing HTML: %w", err)
	}
	s := Structure{Headings: []Heading{}, Links: []Link{}}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, h *goquery.Selection) {
		level := int(goquery.NodeName(h)[1] - '0')
		s.Headings = append(s.Headings, Heading{Level: level, Text: collapse(h.Text())})
	})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		s.Links = append(s.Links, Link{Text: collapse(a.Text()), Href: href})
	})

	doc.Find("script, style").Remove()
	return collapse(doc.Text()), s, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// --- Markdown outline ---

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

func markdownHeadings(md string) []Heading {
	matches := headingRegex.FindAllStringSubmatch(md, -1)
	headings := make([]Heading, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, Heading{Level: len(m[1]), Text: strings.TrimSpace(m[2])})
	}
	return headings
}

// linkRegex matches Markdown links [text](url).
var linkRegex = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)

func markdownLinks(md string) []Link {
	matches := linkRegex.FindAllStringSubmatch(md, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, Link{Text: m[1], Href: m[2]})
	}
	return links
}

var (
	emphasisRegex   = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	inlineCodeRegex = regexp.MustCompile("`([^`]+)`")
	blankRunRegex   = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common Markdown formatting to produce plain text.
func stripMarkdown(md string) string {
	text := headingRegex.ReplaceAllString(md, "$2")
	text = emphasisRegex.ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "```", "")
	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = blankRunRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

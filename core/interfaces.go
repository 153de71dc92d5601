// Package core defines the shared pipeline types for dumppipe.
// Each stage of the pipeline (parse → index → resolve → assemble → render → write)
// exchanges these values and nothing else.
package core

import (
	"context"
	"fmt"
	"strconv"
)

// Warning stages.
const (
	StageDump     = "dump"
	StageIndex    = "index"
	StageSlug     = "slug"
	StageTags     = "tags"
	StageAssemble = "assemble"
	StageOutput   = "output"
	StageMedia    = "media"
	StageFetch    = "fetch"
)

// Warning is a recoverable, row- or resolution-local problem recorded during a run.
// Warnings never abort the run; they are reported alongside the output.
type Warning struct {
	Stage   string `json:"stage"`
	Ref     string `json:"ref,omitempty"` // e.g. "line 42" or "resource 7"
	Message string `json:"message"`
}

// String formats the warning for log and terminal output.
func (w Warning) String() string {
	if w.Ref == "" {
		return fmt.Sprintf("%s: %s", w.Stage, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Stage, w.Ref, w.Message)
}

// LineRef formats a dump line reference.
func LineRef(line int) string {
	return "line " + strconv.Itoa(line)
}

// ResourceRef formats a resource reference.
func ResourceRef(id int64) string {
	return "resource " + strconv.FormatInt(id, 10)
}

// Field is one ordered frontmatter entry.
type Field struct {
	Key   string
	Value any
}

// TemplateVar is one resolved template-variable value attached to a document.
type TemplateVar struct {
	ID    int64  `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Null  bool   `json:"null,omitempty"`
}

// Document is the output record for one published resource.
type Document struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Slug         string        `json:"slug"`
	Segments     []string      `json:"segments"`
	Description  string        `json:"description"`
	TemplateName string        `json:"template"`
	TemplateVars []TemplateVar `json:"template_vars,omitempty"`
	Extra        []Field       `json:"-"` // extended frontmatter, emitted after the template vars
	Body         string        `json:"body"`
}

// Frontmatter returns the ordered frontmatter mapping:
// title, slug, description, template, the template vars, then any extra fields.
func (d Document) Frontmatter() []Field {
	fields := []Field{
		{Key: "title", Value: d.Title},
		{Key: "slug", Value: d.Slug},
		{Key: "description", Value: d.Description},
		{Key: "template", Value: d.TemplateName},
	}
	for _, tv := range d.TemplateVars {
		if tv.Null {
			fields = append(fields, Field{Key: tv.Key, Value: nil})
			continue
		}
		fields = append(fields, Field{Key: tv.Key, Value: tv.Value})
	}
	return append(fields, d.Extra...)
}

// TemplateVarMap returns the template vars keyed by their frontmatter key.
func (d Document) TemplateVarMap() map[string]string {
	m := make(map[string]string, len(d.TemplateVars))
	for _, tv := range d.TemplateVars {
		m[tv.Key] = tv.Value
	}
	return m
}

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Extractor pulls the main content from raw HTML, stripping noise.
type Extractor interface {
	Extract(html string) (string, error)
}

// Normalizer converts an HTML body into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Renderer serializes a Document into a final output format.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}

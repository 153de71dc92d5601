// Package render provides output renderers for dumppipe documents.
// This file implements the Markdown renderer: a YAML frontmatter block
// followed by the body, the layout static-site generators read.
package render

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/dumppipe/core"
)

const fence = "---\n"

// MarkdownRenderer writes `---\n<frontmatter>---\n\n<body>`.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render composes the frontmatter block and the body.
func (r *MarkdownRenderer) Render(doc core.Document) ([]byte, error) {
	fm, err := Frontmatter(doc.Frontmatter())
	if err != nil {
		return nil, fmt.Errorf("rendering frontmatter for resource %d: %w", doc.ID, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(fm) + len(doc.Body) + 2*len(fence) + 1)
	buf.WriteString(fence)
	buf.Write(fm)
	buf.WriteString(fence)
	buf.WriteString("\n")
	buf.WriteString(doc.Body)
	return buf.Bytes(), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// Frontmatter serializes ordered fields as a YAML mapping. Keys keep their
// order; nil values become null.
func Frontmatter(fields []core.Field) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		var value yaml.Node
		if err := value.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", f.Key, err)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
			&value,
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package tags processes the inline [[...]] tags of a page body.
//
// Chunk references are replaced by the chunk's stored markup, every other tag
// is neutralized into an HTML comment that keeps its text verbatim, and asset
// paths in src/href attributes are namespaced under the project. Expansion is
// a single level: inserted chunk markup is never scanned for further tags.
package tags

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/dumppipe/core"
	"github.com/gaurav-prasanna/dumppipe/core/tables"
)

const (
	openTag  = "[["
	closeTag = "]]"
)

// ChunkSource finds chunks by exact name. *tables.Index satisfies it.
type ChunkSource interface {
	Chunk(name string) (tables.ChunkRow, bool)
}

// assetAttr matches the start of a src/href value pointing into assets/,
// root-relative or document-relative, quoted or not.
var assetAttr = regexp.MustCompile(`(?i)\b(src|href)(\s*=\s*)(["']?)/?assets/`)

// Resolver rewrites page bodies against a fixed set of chunks.
type Resolver struct {
	chunks  ChunkSource
	project string
	repl    string
}

// New creates a Resolver. An empty project disables asset rewriting.
func New(chunks ChunkSource, project string) *Resolver {
	project = strings.Trim(project, "/")
	return &Resolver{
		chunks:  chunks,
		project: project,
		repl:    "${1}${2}${3}/" + strings.ReplaceAll(project, "$", "$$") + "/assets/",
	}
}

// Resolve returns the processed body. Unknown chunks and unterminated tags
// are reported as warnings; the returned Ref is left empty for the caller
// to fill in.
func (r *Resolver) Resolve(body string) (string, []core.Warning) {
	var (
		b        strings.Builder
		warnings []core.Warning
	)
	warn := func(format string, args ...any) {
		warnings = append(warnings, core.Warning{Stage: core.StageTags, Message: fmt.Sprintf(format, args...)})
	}

	b.Grow(len(body))
	i := 0
	for i < len(body) {
		start := strings.Index(body[i:], openTag)
		if start < 0 {
			b.WriteString(r.rewriteAssets(body[i:]))
			break
		}
		start += i
		b.WriteString(r.rewriteAssets(body[i:start]))

		end := matchClose(body, start)
		if end < 0 {
			warn("unterminated tag at offset %d left as text", start)
			b.WriteString(openTag)
			i = start + len(openTag)
			continue
		}

		tag := body[start:end]
		if name, ok := chunkName(tag); ok {
			b.WriteString(r.expandChunk(name, warn))
		} else {
			if strings.Contains(tag, "--") {
				warn("tag at offset %d contains \"--\"; its comment may close early", start)
			}
			b.WriteString(Neutralize(tag))
		}
		i = end
	}
	return b.String(), warnings
}

func (r *Resolver) expandChunk(name string, warn func(string, ...any)) string {
	if strings.Contains(name, "--") {
		warn("chunk name %q contains \"--\"; its comment may close early", name)
	}
	ch, ok := r.chunks.Chunk(name)
	if !ok {
		warn("unresolved chunk %q", name)
		return fmt.Sprintf("<!-- unresolved chunk: %s -->", name)
	}
	return fmt.Sprintf("<!-- chunk: %s -->%s<!-- /chunk: %s -->", name, r.rewriteAssets(ch.Snippet), name)
}

// Neutralize wraps a tag in a comment marking it as not executable. The tag
// text is kept verbatim, so a tag containing "--" can end the comment early;
// Resolve warns about those.
func Neutralize(tag string) string {
	return "<!-- MODX tag (not executable): " + tag + " -->"
}

// matchClose returns the index just past the "]]" that closes the tag opened
// at start, honouring nested tags, or -1 when the tag never closes.
func matchClose(s string, start int) int {
	depth := 0
	for j := start; j < len(s); {
		switch {
		case strings.HasPrefix(s[j:], openTag):
			depth++
			j += len(openTag)
		case strings.HasPrefix(s[j:], closeTag):
			depth--
			j += len(closeTag)
			if depth == 0 {
				return j
			}
		default:
			j++
		}
	}
	return -1
}

// chunkName reports the chunk name of a [[$name...]] or [[!$name...]] tag.
func chunkName(tag string) (string, bool) {
	inner := strings.TrimSpace(tag[len(openTag) : len(tag)-len(closeTag)])
	inner = strings.TrimPrefix(inner, "!")
	if !strings.HasPrefix(inner, "$") {
		return "", false
	}
	inner = inner[1:]
	end := strings.IndexAny(inner, "?:@ \t\r\n[]`&")
	if end < 0 {
		end = len(inner)
	}
	if end == 0 {
		return "", false
	}
	return inner[:end], true
}

func (r *Resolver) rewriteAssets(s string) string {
	if r.project == "" || !strings.Contains(s, "assets/") {
		return s
	}
	return assetAttr.ReplaceAllString(s, r.repl)
}

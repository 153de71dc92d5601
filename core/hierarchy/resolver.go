// Package hierarchy turns parent/alias chains into canonical slug paths.
//
// A resource with a stored uri keeps it verbatim. Otherwise the path is built
// by walking parent ids up to the root, bounded by a maximum depth so that a
// cyclic or corrupt parent graph always terminates.
package hierarchy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/dumppipe/core"
	"github.com/gaurav-prasanna/dumppipe/core/tables"
)

// DefaultMaxDepth bounds the ancestor walk.
const DefaultMaxDepth = 64

// RootParent is the parent id of top-level resources.
const RootParent = 0

// Lookup finds content rows by id. *tables.Index satisfies it.
type Lookup interface {
	Content(id int64) (tables.ContentRow, bool)
}

// Path is a resolved slug: a non-empty sequence of segments.
type Path struct {
	raw      string
	segments []string
}

// NewPath builds a Path from segments, dropping empty ones.
func NewPath(segments ...string) Path {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return Path{raw: "/" + strings.Join(kept, "/"), segments: kept}
}

// FromURI wraps a stored uri; String returns it unchanged.
func FromURI(uri string) Path {
	var segs []string
	for _, s := range strings.Split(uri, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return Path{raw: uri, segments: segs}
}

// String renders the path ("/seg1/seg2", or the stored uri verbatim).
func (p Path) String() string { return p.raw }

// Segments returns the non-empty path segments.
func (p Path) Segments() []string { return append([]string(nil), p.segments...) }

// Resolver computes slug paths over an immutable lookup.
type Resolver struct {
	lookup   Lookup
	maxDepth int
}

// New creates a Resolver. maxDepth <= 0 selects DefaultMaxDepth.
func New(lookup Lookup, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{lookup: lookup, maxDepth: maxDepth}
}

// MaxDepth returns the configured ancestor bound.
func (r *Resolver) MaxDepth() int { return r.maxDepth }

// Resolve returns the slug path for row. A missing ancestor, a cycle or the
// depth bound stops the walk early; the partial path is still returned and
// the reason is reported as a warning.
func (r *Resolver) Resolve(row tables.ContentRow) (Path, []core.Warning) {
	if row.URI != "" {
		return FromURI(row.URI), nil
	}

	var warnings []core.Warning
	warn := func(format string, args ...any) {
		warnings = append(warnings, core.Warning{
			Stage:   core.StageSlug,
			Ref:     core.ResourceRef(row.ID),
			Message: fmt.Sprintf(format, args...),
		})
	}

	// Collected leaf-first, reversed below.
	var parents []string
	seen := map[int64]bool{row.ID: true}
	current := row
	for depth := 0; current.Parent != RootParent; depth++ {
		if depth >= r.maxDepth {
			warn("ancestor walk stopped at max depth %d; slug is partial", r.maxDepth)
			break
		}
		parent, ok := r.lookup.Content(current.Parent)
		if !ok {
			warn("ancestor %d not found; slug is partial", current.Parent)
			break
		}
		if seen[parent.ID] {
			warn("parent cycle at resource %d; slug is partial", parent.ID)
			break
		}
		seen[parent.ID] = true
		parents = append(parents, parent.Alias)
		current = parent
	}

	segments := make([]string, 0, len(parents)+1)
	for i := len(parents) - 1; i >= 0; i-- {
		segments = append(segments, parents[i])
	}
	segments = append(segments, row.Alias)

	p := NewPath(segments...)
	if len(p.segments) == 0 {
		p = NewPath(strconv.FormatInt(row.ID, 10))
	}
	return p, warnings
}

// Package tables builds the read-only, id-indexed view over a parsed dump.
//
// The Index is built once per run and never mutated afterwards, so any number
// of resolvers may read it concurrently.
package tables

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gaurav-prasanna/dumppipe/core"
	"github.com/gaurav-prasanna/dumppipe/core/dump"
)

// DefaultPrefix is the table prefix of a stock installation.
const DefaultPrefix = "modx_"

// Logical (unprefixed) names of the tables the pipeline understands.
const (
	SiteContent          = "site_content"
	TemplateVarValues    = "site_tmplvar_contentvalues"
	TemplateVars         = "site_tmplvars"
	TemplateVarTemplates = "site_tmplvar_templates"
	Templates            = "site_templates"
	Chunks               = "site_htmlsnippets"
)

var known = map[string]bool{
	SiteContent:          true,
	TemplateVarValues:    true,
	TemplateVars:         true,
	TemplateVarTemplates: true,
	Templates:            true,
	Chunks:               true,
}

// ErrNoContentTable is returned when the dump has no content table at all.
var ErrNoContentTable = errors.New("content table not found in dump")

// Index is the immutable view over all recovered rows.
type Index struct {
	prefix string
	rows   map[string][]dump.Row
	names  []string

	content   []ContentRow
	byID      map[int64]int
	tvValues  map[int64][]TemplateVarValueRow
	tvDefs    map[int64]TemplateVarRow
	templates map[int64]TemplateRow
	chunks    map[string]ChunkRow
}

// LogicalName maps a dump table name to its logical name. Both "site_content"
// and prefix+"site_content" resolve to "site_content"; unknown tables keep
// their own name and report false.
func LogicalName(name, prefix string) (string, bool) {
	if known[name] {
		return name, true
	}
	if prefix != "" && strings.HasPrefix(name, prefix) {
		if rest := strings.TrimPrefix(name, prefix); known[rest] {
			return rest, true
		}
	}
	return name, false
}

// Build indexes a parsed dump. Rows that cannot be typed are dropped with a
// warning. The only error is ErrNoContentTable.
func Build(d *dump.Dump, prefix string) (*Index, []core.Warning, error) {
	idx := &Index{
		prefix:    prefix,
		rows:      make(map[string][]dump.Row),
		byID:      make(map[int64]int),
		tvValues:  make(map[int64][]TemplateVarValueRow),
		tvDefs:    make(map[int64]TemplateVarRow),
		templates: make(map[int64]TemplateRow),
		chunks:    make(map[string]ChunkRow),
	}

	for _, t := range d.Tables {
		name, _ := LogicalName(t.Name, prefix)
		if _, seen := idx.rows[name]; !seen {
			idx.names = append(idx.names, name)
		}
		idx.rows[name] = append(idx.rows[name], t.Rows...)
	}

	if _, ok := idx.rows[SiteContent]; !ok {
		return nil, nil, fmt.Errorf("%w (looked for %s and %s%s)", ErrNoContentTable, SiteContent, prefix, SiteContent)
	}

	var warnings []core.Warning
	warn := func(r dump.Row, format string, args ...any) {
		warnings = append(warnings, core.Warning{
			Stage:   core.StageIndex,
			Ref:     core.LineRef(r.Line),
			Message: fmt.Sprintf(format, args...),
		})
	}

	for _, r := range idx.rows[SiteContent] {
		c, ok := contentFromRow(r)
		if !ok {
			warn(r, "content row without an integer id dropped")
			continue
		}
		if _, dup := idx.byID[c.ID]; dup {
			warn(r, "duplicate content id %d dropped", c.ID)
			continue
		}
		idx.byID[c.ID] = len(idx.content)
		idx.content = append(idx.content, c)
	}

	values := make(map[int64]map[int64]TemplateVarValueRow)
	for _, r := range idx.rows[TemplateVarValues] {
		tv, ok := tvValueFromRow(r)
		if !ok {
			warn(r, "template variable value without contentid/tmplvarid dropped")
			continue
		}
		if values[tv.ContentID] == nil {
			values[tv.ContentID] = make(map[int64]TemplateVarValueRow)
		}
		// Later rows win, matching a replay into a keyed table.
		values[tv.ContentID][tv.TmplVarID] = tv
	}
	for contentID, byVar := range values {
		list := make([]TemplateVarValueRow, 0, len(byVar))
		for _, tv := range byVar {
			list = append(list, tv)
		}
		slices.SortFunc(list, func(a, b TemplateVarValueRow) int {
			return cmp.Compare(a.TmplVarID, b.TmplVarID)
		})
		idx.tvValues[contentID] = list
	}

	for _, r := range idx.rows[TemplateVars] {
		if def, ok := tvDefFromRow(r); ok {
			idx.tvDefs[def.ID] = def
		} else {
			warn(r, "template variable definition without an integer id dropped")
		}
	}

	for _, r := range idx.rows[Templates] {
		if tpl, ok := templateFromRow(r); ok {
			idx.templates[tpl.ID] = tpl
		} else {
			warn(r, "template without an integer id dropped")
		}
	}

	for _, r := range idx.rows[Chunks] {
		ch, ok := chunkFromRow(r)
		if !ok {
			warn(r, "chunk without a name dropped")
			continue
		}
		if _, dup := idx.chunks[ch.Name]; dup {
			warn(r, "duplicate chunk %q ignored", ch.Name)
			continue
		}
		idx.chunks[ch.Name] = ch
	}

	return idx, warnings, nil
}

// Content returns the content row with the given id.
func (idx *Index) Content(id int64) (ContentRow, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return ContentRow{}, false
	}
	return idx.content[i], true
}

// Contents returns all content rows in dump order.
func (idx *Index) Contents() []ContentRow {
	return slices.Clone(idx.content)
}

// TemplateVars returns the template-variable values for a resource, ordered
// by variable id.
func (idx *Index) TemplateVars(contentID int64) []TemplateVarValueRow {
	return slices.Clone(idx.tvValues[contentID])
}

// TemplateVar returns a template-variable definition.
func (idx *Index) TemplateVar(id int64) (TemplateVarRow, bool) {
	def, ok := idx.tvDefs[id]
	return def, ok
}

// Template returns a template by id.
func (idx *Index) Template(id int64) (TemplateRow, bool) {
	tpl, ok := idx.templates[id]
	return tpl, ok
}

// Chunk returns a chunk by exact, case-sensitive name.
func (idx *Index) Chunk(name string) (ChunkRow, bool) {
	ch, ok := idx.chunks[name]
	return ch, ok
}

// Rows returns the raw rows of any table by logical or dump name.
func (idx *Index) Rows(name string) []dump.Row {
	logical, _ := LogicalName(name, idx.prefix)
	return slices.Clone(idx.rows[logical])
}

// Tables returns all table names in first-seen order, known tables under
// their logical name.
func (idx *Index) Tables() []string {
	return slices.Clone(idx.names)
}

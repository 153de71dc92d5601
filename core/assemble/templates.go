// Package assemble — template naming.
package assemble

import (
	"github.com/gosimple/slug"

	"github.com/gaurav-prasanna/dumppipe/core/tables"
)

// Default template designations.
const (
	DefaultHomeID       = 1
	DefaultHomeName     = "home"
	DefaultStandardName = "standard"
)

// TemplateSource finds templates by id. *tables.Index satisfies it.
type TemplateSource interface {
	Template(id int64) (tables.TemplateRow, bool)
}

// TemplateNamer maps a template id to the frontmatter template designation.
//
// Resolution order: an explicit entry in Names, the slugified source template
// name when SourceNames is set, HomeName for HomeID, StandardName otherwise.
type TemplateNamer struct {
	HomeID       int64
	HomeName     string
	StandardName string
	SourceNames  bool
	Names        map[int64]string
}

// DefaultTemplateNamer returns the two-way home/standard mapping.
func DefaultTemplateNamer() TemplateNamer {
	return TemplateNamer{
		HomeID:       DefaultHomeID,
		HomeName:     DefaultHomeName,
		StandardName: DefaultStandardName,
	}
}

// Name returns the designation for template id. src may be nil.
func (n TemplateNamer) Name(id int64, src TemplateSource) string {
	if name, ok := n.Names[id]; ok && name != "" {
		return name
	}
	if n.SourceNames && src != nil {
		if tpl, ok := src.Template(id); ok {
			if s := slug.Make(tpl.TemplateName); s != "" {
				return s
			}
		}
	}
	if id == n.HomeID {
		return orDefault(n.HomeName, DefaultHomeName)
	}
	return orDefault(n.StandardName, DefaultStandardName)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

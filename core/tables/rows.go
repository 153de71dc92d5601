// Package tables — typed row views.
// Each view is a plain struct decoded once from a dump.Row; nothing else in
// the pipeline reads raw rows for the tables listed here.
package tables

import (
	"github.com/gaurav-prasanna/dumppipe/core/dump"
)

// ContentRow is one resource (page) from site_content.
type ContentRow struct {
	ID          int64
	PageTitle   string
	LongTitle   string
	Description string
	Alias       string
	MenuTitle   string
	IntroText   string
	Content     string
	Parent      int64
	Template    int64
	URI         string
	Published   bool
	Deleted     bool

	MenuIndex   int64
	HideMenu    bool
	IsFolder    bool
	Searchable  bool
	CreatedOn   int64 // unix seconds, 0 when unset
	EditedOn    int64
	PublishedOn int64
}

// TemplateVarValueRow is one template-variable value attached to a resource.
type TemplateVarValueRow struct {
	ContentID int64
	TmplVarID int64
	Value     dump.Value
}

// TemplateVarRow is one template-variable definition from site_tmplvars.
type TemplateVarRow struct {
	ID      int64
	Name    string
	Caption string
	Type    string
}

// ChunkRow is one reusable fragment from site_htmlsnippets.
type ChunkRow struct {
	ID      int64
	Name    string
	Snippet string
}

// TemplateRow is one template from site_templates.
type TemplateRow struct {
	ID           int64
	TemplateName string
	Description  string
	Content      string
}

func intField(r dump.Row, col string) int64 {
	n, _ := r.Get(col).Int()
	return n
}

func boolField(r dump.Row, col string, def bool) bool {
	v, ok := r.Lookup(col)
	if !ok || v.IsNull() {
		return def
	}
	b, ok := v.Bool()
	if !ok {
		return def
	}
	return b
}

func contentFromRow(r dump.Row) (ContentRow, bool) {
	id, ok := r.Get("id").Int()
	if !ok {
		return ContentRow{}, false
	}
	return ContentRow{
		ID:          id,
		PageTitle:   r.Get("pagetitle").String(),
		LongTitle:   r.Get("longtitle").String(),
		Description: r.Get("description").String(),
		Alias:       r.Get("alias").String(),
		MenuTitle:   r.Get("menutitle").String(),
		IntroText:   r.Get("introtext").String(),
		Content:     r.Get("content").String(),
		Parent:      intField(r, "parent"),
		Template:    intField(r, "template"),
		URI:         r.Get("uri").String(),
		Published:   boolField(r, "published", true),
		Deleted:     boolField(r, "deleted", false),
		MenuIndex:   intField(r, "menuindex"),
		HideMenu:    boolField(r, "hidemenu", false),
		IsFolder:    boolField(r, "isfolder", false),
		Searchable:  boolField(r, "searchable", true),
		CreatedOn:   intField(r, "createdon"),
		EditedOn:    intField(r, "editedon"),
		PublishedOn: intField(r, "publishedon"),
	}, true
}

func tvValueFromRow(r dump.Row) (TemplateVarValueRow, bool) {
	contentID, ok := r.Get("contentid").Int()
	if !ok {
		return TemplateVarValueRow{}, false
	}
	tvID, ok := r.Get("tmplvarid").Int()
	if !ok {
		return TemplateVarValueRow{}, false
	}
	return TemplateVarValueRow{ContentID: contentID, TmplVarID: tvID, Value: r.Get("value")}, true
}

func tvDefFromRow(r dump.Row) (TemplateVarRow, bool) {
	id, ok := r.Get("id").Int()
	if !ok {
		return TemplateVarRow{}, false
	}
	return TemplateVarRow{
		ID:      id,
		Name:    r.Get("name").String(),
		Caption: r.Get("caption").String(),
		Type:    r.Get("type").String(),
	}, true
}

func chunkFromRow(r dump.Row) (ChunkRow, bool) {
	name := r.Get("name").String()
	if name == "" {
		return ChunkRow{}, false
	}
	return ChunkRow{ID: intField(r, "id"), Name: name, Snippet: r.Get("snippet").String()}, true
}

func templateFromRow(r dump.Row) (TemplateRow, bool) {
	id, ok := r.Get("id").Int()
	if !ok {
		return TemplateRow{}, false
	}
	return TemplateRow{
		ID:           id,
		TemplateName: r.Get("templatename").String(),
		Description:  r.Get("description").String(),
		Content:      r.Get("content").String(),
	}, true
}

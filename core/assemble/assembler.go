// Package assemble merges a resource's fields, template variables, slug and
// processed body into one core.Document.
//
// Assembly of a row either fully succeeds or the row is skipped with a
// warning; no partial documents are produced.
package assemble

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/gaurav-prasanna/dumppipe/core"
	"github.com/gaurav-prasanna/dumppipe/core/hierarchy"
	"github.com/gaurav-prasanna/dumppipe/core/tables"
	"github.com/gaurav-prasanna/dumppipe/core/tags"
)

// Template-variable key modes.
const (
	KeyByID   = "id"
	KeyByName = "name"
)

// TemplateVarPrefix namespaces template-variable ids in the frontmatter.
const TemplateVarPrefix = "tv_"

// ErrMissingTitle is returned for a resource without a pagetitle.
var ErrMissingTitle = errors.New("missing pagetitle")

// assetRef matches media references handed to the media copy step.
var assetRef = regexp.MustCompile("assets/(?:images|files|uploads|userupload)/[^\\s\"'<>)`]+")

// Source is everything the assembler reads. *tables.Index satisfies it.
type Source interface {
	hierarchy.Lookup
	tags.ChunkSource
	TemplateSource
	Contents() []tables.ContentRow
	TemplateVars(contentID int64) []tables.TemplateVarValueRow
	TemplateVar(id int64) (tables.TemplateVarRow, bool)
}

// Options configures an Assembler.
type Options struct {
	Project   string
	MaxDepth  int
	Templates TemplateNamer
	TVKeys    string // KeyByID (default) or KeyByName
	Extended  bool   // add longtitle, menuindex, dates and flags to the frontmatter
}

// Result is the outcome of a full run.
type Result struct {
	Documents []core.Document
	Assets    []string
	Warnings  []core.Warning
	Skipped   int // published rows that failed assembly
	Filtered  int // unpublished or deleted rows
}

// Assembler builds documents from an index.
type Assembler struct {
	src   Source
	opts  Options
	slugs *hierarchy.Resolver
	tags  *tags.Resolver
}

// New creates an Assembler. A zero HomeID selects DefaultHomeID; empty
// template names fall back to the defaults.
func New(src Source, opts Options) *Assembler {
	if opts.Templates.HomeID == 0 {
		opts.Templates.HomeID = DefaultHomeID
	}
	if opts.TVKeys == "" {
		opts.TVKeys = KeyByID
	}
	return &Assembler{
		src:   src,
		opts:  opts,
		slugs: hierarchy.New(src, opts.MaxDepth),
		tags:  tags.New(src, opts.Project),
	}
}

// Assemble builds the document for one content row. Warnings are returned
// even when the document is built; an error means the row must be skipped.
func (a *Assembler) Assemble(row tables.ContentRow) (core.Document, []core.Warning, error) {
	if row.PageTitle == "" {
		return core.Document{}, nil, fmt.Errorf("resource %d: %w", row.ID, ErrMissingTitle)
	}

	path, warnings := a.slugs.Resolve(row)

	body, tagWarnings := a.tags.Resolve(row.Content)
	for _, w := range tagWarnings {
		w.Ref = core.ResourceRef(row.ID)
		warnings = append(warnings, w)
	}

	doc := core.Document{
		ID:           row.ID,
		Title:        row.PageTitle,
		Slug:         path.String(),
		Segments:     path.Segments(),
		Description:  row.Description,
		TemplateName: a.opts.Templates.Name(row.Template, a.src),
		TemplateVars: a.templateVars(row.ID),
		Body:         body,
	}
	if a.opts.Extended {
		doc.Extra = extendedFields(row)
	}
	return doc, warnings, nil
}

func (a *Assembler) templateVars(contentID int64) []core.TemplateVar {
	rows := a.src.TemplateVars(contentID)
	if len(rows) == 0 {
		return nil
	}
	tvs := make([]core.TemplateVar, 0, len(rows))
	for _, r := range rows {
		tvs = append(tvs, core.TemplateVar{
			ID:    r.TmplVarID,
			Key:   a.templateVarKey(r.TmplVarID),
			Value: r.Value.String(),
			Null:  r.Value.IsNull(),
		})
	}
	return tvs
}

func (a *Assembler) templateVarKey(id int64) string {
	if a.opts.TVKeys == KeyByName {
		if def, ok := a.src.TemplateVar(id); ok && def.Name != "" {
			return def.Name
		}
	}
	return TemplateVarPrefix + strconv.FormatInt(id, 10)
}

func extendedFields(row tables.ContentRow) []core.Field {
	return []core.Field{
		{Key: "longtitle", Value: row.LongTitle},
		{Key: "menuindex", Value: row.MenuIndex},
		{Key: "createdon", Value: timestamp(row.CreatedOn)},
		{Key: "editedon", Value: timestamp(row.EditedOn)},
		{Key: "hidemenu", Value: row.HideMenu},
		{Key: "isfolder", Value: row.IsFolder},
		{Key: "searchable", Value: row.Searchable},
	}
}

// timestamp formats unix seconds as RFC 3339 in UTC; zero stays empty.
func timestamp(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// Publishable reports whether a row produces a document.
func Publishable(row tables.ContentRow) bool {
	return row.Published && !row.Deleted
}

// Run assembles every published, non-deleted resource in source order.
func (a *Assembler) Run() *Result {
	res := &Result{}
	assets := make(map[string]struct{})

	for _, row := range a.src.Contents() {
		if !Publishable(row) {
			res.Filtered++
			continue
		}
		doc, warnings, err := a.Assemble(row)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			res.Skipped++
			res.Warnings = append(res.Warnings, core.Warning{
				Stage:   core.StageAssemble,
				Ref:     core.ResourceRef(row.ID),
				Message: "skipped: " + err.Error(),
			})
			continue
		}
		for _, ref := range DocumentAssets(doc) {
			assets[ref] = struct{}{}
		}
		res.Documents = append(res.Documents, doc)
	}

	res.Assets = make([]string, 0, len(assets))
	for ref := range assets {
		res.Assets = append(res.Assets, ref)
	}
	slices.Sort(res.Assets)
	return res
}

// DocumentAssets returns the asset references in a document's body and
// template-variable values, deduplicated, in first-seen order.
func DocumentAssets(doc core.Document) []string {
	texts := make([]string, 0, len(doc.TemplateVars)+1)
	texts = append(texts, doc.Body)
	for _, tv := range doc.TemplateVars {
		texts = append(texts, tv.Value)
	}
	return FindAssets(texts...)
}

// FindAssets returns the asset references found in texts, deduplicated, in
// first-seen order.
func FindAssets(texts ...string) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, t := range texts {
		for _, m := range assetRef.FindAllString(t, -1) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Package output handles file naming and writing for rendered documents.
// Documents land under <output>/<project>/pages. In slug layout the file
// path mirrors the document's slug segments (/about/team → about/team.md);
// in id layout every document is written flat as <id>.md.
package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/dumppipe/core"
)

// Layouts.
const (
	LayoutSlug = "slug"
	LayoutID   = "id"
)

// PagesDir is the directory under <output>/<project> that holds documents.
const PagesDir = "pages"

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// Writer writes rendered documents to disk.
type Writer struct {
	Root   string // <output>/<project>/pages
	Layout string
}

// Written is the outcome of writing one document.
type Written struct {
	ID    int64
	Path  string
	Bytes int
	Err   error
}

// New creates a Writer for <outputDir>/<project>/pages and creates the
// directory. An empty outputDir selects the working directory.
func New(outputDir, project, layout string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}
	switch layout {
	case "":
		layout = LayoutSlug
	case LayoutSlug, LayoutID:
	default:
		return nil, fmt.Errorf("unknown layout %q", layout)
	}

	root := filepath.Join(outputDir, project, PagesDir)
	if err := os.MkdirAll(root, dirPerms); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{Root: root, Layout: layout}, nil
}

// RelPath returns the document's path relative to Root, without extension.
func (w *Writer) RelPath(doc core.Document) string {
	if w.Layout == LayoutID {
		return strconv.FormatInt(doc.ID, 10)
	}
	return SlugPath(doc.Segments)
}

// SlugPath turns slug segments into a relative file path: each segment is
// slugified, a trailing .html/.htm is dropped from the last one, and an
// empty result becomes "index".
func SlugPath(segments []string) string {
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		if i == len(segments)-1 {
			seg = strings.TrimSuffix(strings.TrimSuffix(seg, ".html"), ".htm")
		}
		if s := slug.Make(seg); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "index"
	}
	return filepath.Join(parts...)
}

// Plan assigns every document a unique relative path. A document whose path
// is already taken gets its id appended, then a counter until the path is
// free; the collision is reported.
func (w *Writer) Plan(docs []core.Document, ext string) ([]string, []core.Warning) {
	var warnings []core.Warning
	taken := make(map[string]int64, len(docs))
	paths := make([]string, len(docs))

	for i, doc := range docs {
		base := w.RelPath(doc)
		p := base + ext
		if owner, dup := taken[p]; dup {
			alt := base + "-" + strconv.FormatInt(doc.ID, 10)
			candidate := alt + ext
			for n := 2; ; n++ {
				if _, used := taken[candidate]; !used {
					break
				}
				candidate = alt + "-" + strconv.Itoa(n) + ext
			}
			warnings = append(warnings, core.Warning{
				Stage:   core.StageOutput,
				Ref:     core.ResourceRef(doc.ID),
				Message: fmt.Sprintf("path %s already used by resource %d; writing %s", p, owner, candidate),
			})
			p = candidate
		}
		taken[p] = doc.ID
		paths[i] = p
	}
	return paths, warnings
}

// Write atomically writes data to rel under Root, creating parent directories.
func (w *Writer) Write(rel string, data []byte) (string, error) {
	fullPath := filepath.Join(w.Root, rel)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := atomic.WriteFile(fullPath, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("writing file %s: %w", fullPath, err)
	}
	// atomic.WriteFile leaves new files with the temp file's mode.
	if err := os.Chmod(fullPath, filePerms); err != nil {
		return "", fmt.Errorf("setting permissions on %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// WriteAll renders and writes docs with up to concurrency workers. Per
// document failures are reported in the result; the returned error is only
// set when ctx is cancelled. Results are in docs order.
func (w *Writer) WriteAll(ctx context.Context, docs []core.Document, r core.Renderer, concurrency int) ([]Written, []core.Warning, error) {
	paths, warnings := w.Plan(docs, r.Extension())
	results := make([]Written, len(docs))

	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := Written{ID: doc.ID}
			data, err := r.Render(doc)
			if err != nil {
				res.Err = err
				results[i] = res
				return nil
			}
			res.Path, res.Err = w.Write(paths[i], data)
			if res.Err == nil {
				res.Bytes = len(data)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, warnings, err
	}
	if err := ctx.Err(); err != nil {
		return results, warnings, err
	}
	return results, warnings, nil
}

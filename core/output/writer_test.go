package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/dumppipe/core"
)

// stubRenderer renders the document title, failing for one id.
type stubRenderer struct {
	failID int64
}

func (r stubRenderer) Render(doc core.Document) ([]byte, error) {
	if doc.ID == r.failID {
		return nil, errors.New("boom")
	}
	return []byte(doc.Title), nil
}

func (r stubRenderer) Extension() string { return ".md" }

func TestSlugPath(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"single", []string{"home"}, "home"},
		{"nested", []string{"home", "sub"}, filepath.Join("home", "sub")},
		{"html suffix", []string{"about", "team.html"}, filepath.Join("about", "team")},
		{"htm suffix", []string{"legacy.htm"}, "legacy"},
		{"slugified", []string{"Über Uns", "Kontakt & Anfahrt"}, filepath.Join("uber-uns", "kontakt-and-anfahrt")},
		{"empty", nil, "index"},
		{"only junk", []string{"--"}, "index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SlugPath(tt.segments))
		})
	}
}

func TestNewRejectsUnknownLayout(t *testing.T) {
	_, err := New(t.TempDir(), "acme", "tree")
	require.Error(t, err)
}

func TestPlanResolvesCollisions(t *testing.T) {
	w, err := New(t.TempDir(), "acme", LayoutSlug)
	require.NoError(t, err)

	docs := []core.Document{
		{ID: 1, Segments: []string{"about"}},
		{ID: 2, Segments: []string{"about.html"}},
		{ID: 3, Segments: []string{"contact"}},
	}
	paths, warnings := w.Plan(docs, ".md")
	assert.Equal(t, []string{"about.md", "about-2.md", "contact.md"}, paths)
	require.Len(t, warnings, 1)
	assert.Equal(t, core.ResourceRef(2), warnings[0].Ref)
	assert.Contains(t, warnings[0].Message, "already used by resource 1")

	docs = []core.Document{
		{ID: 1, Segments: []string{"about-7"}},
		{ID: 2, Segments: []string{"about"}},
		{ID: 7, Segments: []string{"about"}},
		{ID: 8, Segments: []string{"about-7-2"}},
		{ID: 7, Segments: []string{"about"}},
	}
	paths, warnings = w.Plan(docs, ".md")
	assert.Equal(t, []string{"about-7.md", "about.md", "about-7-2.md", "about-7-2-8.md", "about-7-3.md"}, paths)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0].Message, "writing about-7-2.md")

	seen := make(map[string]bool)
	for _, p := range paths {
		assert.False(t, seen[p], "path %s planned twice", p)
		seen[p] = true
	}
}

func TestWriteAll(t *testing.T) {
	out := t.TempDir()
	w, err := New(out, "acme", LayoutSlug)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "acme", "pages"), w.Root)

	docs := []core.Document{
		{ID: 1, Title: "Home", Segments: []string{"home"}},
		{ID: 2, Title: "Sub", Segments: []string{"home", "sub"}},
		{ID: 3, Title: "Broken", Segments: []string{"broken"}},
	}
	results, warnings, err := w.WriteAll(context.Background(), docs, stubRenderer{failID: 3}, 4)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, filepath.Join(w.Root, "home.md"), results[0].Path)
	assert.Equal(t, 4, results[0].Bytes)

	data, err := os.ReadFile(filepath.Join(w.Root, "home", "sub.md"))
	require.NoError(t, err)
	assert.Equal(t, "Sub", string(data))

	assert.EqualError(t, results[2].Err, "boom")
	assert.NoFileExists(t, filepath.Join(w.Root, "broken.md"))

	info, err := os.Stat(results[1].Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerms), info.Mode().Perm())
}

func TestWriteAllIDLayout(t *testing.T) {
	w, err := New(t.TempDir(), "acme", LayoutID)
	require.NoError(t, err)

	docs := []core.Document{{ID: 7, Title: "Seven", Segments: []string{"a", "b"}}}
	results, _, err := w.WriteAll(context.Background(), docs, stubRenderer{}, 1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.Root, "7.md"), results[0].Path)
	assert.FileExists(t, results[0].Path)
}

func TestWriteAllCancelled(t *testing.T) {
	w, err := New(t.TempDir(), "acme", LayoutSlug)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []core.Document{{ID: 1, Title: "Home", Segments: []string{"home"}}}
	_, _, err = w.WriteAll(ctx, docs, stubRenderer{}, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(w.Root, "home.md"))
}

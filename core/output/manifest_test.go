package output

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/dumppipe/core"
)

func TestManifestRecord(t *testing.T) {
	ctx := context.Background()
	m, err := OpenManifest(filepath.Join(t.TempDir(), "runs", "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	run := Run{
		ID:        "run-1",
		Project:   "acme",
		Source:    "dump.sql",
		StartedAt: time.Unix(1700000000, 0),
		Documents: []DocumentEntry{
			{ID: 2, Slug: "/home/sub", Title: "Sub", Template: "standard", Path: "home/sub.md", Bytes: 10},
			{ID: 1, Slug: "/home", Title: "Home", Template: "home", Path: "home.md", Bytes: 12},
		},
		Assets:   []string{"assets/images/b.png", "assets/images/a.png", "assets/images/a.png"},
		Warnings: []core.Warning{{Stage: core.StageTags, Ref: "resource 1", Message: `unresolved chunk "x"`}},
		Skipped:  1,
	}
	require.NoError(t, m.Record(ctx, run))

	docs, err := m.Documents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(1), docs[0].ID)
	assert.Equal(t, run.Documents[0], docs[1])

	assets, err := m.Assets(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/images/a.png", "assets/images/b.png"}, assets)

	n, err := m.WarningCount(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Error(t, m.Record(ctx, run), "run ids are unique")

	docs, err = m.Documents(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

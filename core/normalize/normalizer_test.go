package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := New().Normalize(`<h1>Title</h1><p>Hello <strong>world</strong></p>`)
	require.NoError(t, err)
	assert.Contains(t, got, "# Title")
	assert.Contains(t, got, "Hello **world**")
}

func TestNormalizeKeepsMarkers(t *testing.T) {
	in := `<p>Intro</p><!-- MODX tag (not executable): [[!RunMe? &x=` + "`1`" + `]] -->` +
		`<!-- chunk: footer --><p>Contact</p><!-- /chunk: footer --><!-- unresolved chunk: nav -->`

	got, err := New().Normalize(in)
	require.NoError(t, err)
	for _, marker := range []string{
		"<!-- MODX tag (not executable): [[!RunMe? &x=`1`]] -->",
		"<!-- chunk: footer -->",
		"<!-- /chunk: footer -->",
		"<!-- unresolved chunk: nav -->",
	} {
		assert.Contains(t, got, marker)
	}
	assert.Contains(t, got, "Contact")
	assert.NotContains(t, got, "DUMPPIPEMARKER")
}

package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/dumppipe/core/tables"
)

type chunkMap map[string]string

func (m chunkMap) Chunk(name string) (tables.ChunkRow, bool) {
	s, ok := m[name]
	if !ok {
		return tables.ChunkRow{}, false
	}
	return tables.ChunkRow{Name: name, Snippet: s}, true
}

func TestResolveExpandsChunk(t *testing.T) {
	r := New(chunkMap{"footer": "<p>Contact</p>"}, "")

	got, warnings := r.Resolve("<div>[[$footer]]</div>")
	assert.Empty(t, warnings)
	assert.Equal(t, "<div><!-- chunk: footer --><p>Contact</p><!-- /chunk: footer --></div>", got)
}

func TestResolveChunkVariants(t *testing.T) {
	r := New(chunkMap{"footer": "F", "Footer": "upper"}, "")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"uncached", "[[!$footer]]", "<!-- chunk: footer -->F<!-- /chunk: footer -->"},
		{"with params", "[[$footer? &year=`2024`]]", "<!-- chunk: footer -->F<!-- /chunk: footer -->"},
		{"case sensitive", "[[$Footer]]", "<!-- chunk: Footer -->upper<!-- /chunk: Footer -->"},
		{"padded", "[[ $footer ]]", "<!-- chunk: footer -->F<!-- /chunk: footer -->"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := r.Resolve(tt.in)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownChunk(t *testing.T) {
	r := New(chunkMap{"footer": "F"}, "")

	got, warnings := r.Resolve("a [[$FOOTER]] b")
	assert.Equal(t, "a <!-- unresolved chunk: FOOTER --> b", got)
	require.Len(t, warnings, 1)
	assert.Equal(t, `unresolved chunk "FOOTER"`, warnings[0].Message)
}

func TestResolveIsSinglePass(t *testing.T) {
	r := New(chunkMap{
		"outer": "<b>[[$inner]]</b>",
		"inner": "never",
	}, "")

	got, warnings := r.Resolve("[[$outer]]")
	assert.Empty(t, warnings)
	assert.Equal(t, "<!-- chunk: outer --><b>[[$inner]]</b><!-- /chunk: outer -->", got)
	assert.NotContains(t, got, "never")
}

func TestResolveNeutralizesTags(t *testing.T) {
	r := New(chunkMap{}, "")

	tests := []struct {
		name string
		tag  string
	}{
		{"eager snippet", "[[!RunMe]]"},
		{"snippet with params", "[[Wayfinder? &startId=`0` &level=`1`]]"},
		{"placeholder", "[[*pagetitle]]"},
		{"setting", "[[++site_name]]"},
		{"link", "[[~5]]"},
		{"nested tags", "[[!getResources? &tpl=`[[$row]]` &parents=`[[*id]]`]]"},
		{"empty", "[[]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := r.Resolve("x" + tt.tag + "y")
			assert.Empty(t, warnings)
			assert.Equal(t, "x<!-- MODX tag (not executable): "+tt.tag+" -->y", got)
			assert.Contains(t, got, tt.tag, "original tag text must survive")
		})
	}
}

func TestResolveWarnsOnCommentBreakingTag(t *testing.T) {
	r := New(chunkMap{}, "")

	tag := "[[*pagetitle --> ]]"
	got, warnings := r.Resolve("a " + tag)
	assert.Equal(t, "a "+Neutralize(tag), got, "tag text stays verbatim")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, `tag at offset 2 contains "--"`)

	_, warnings = r.Resolve("[[$foo-->x]]")
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Message, `chunk name "foo-->x" contains "--"`)
	assert.Equal(t, `unresolved chunk "foo-->x"`, warnings[1].Message)
}

func TestResolveUnterminatedTag(t *testing.T) {
	r := New(chunkMap{"footer": "F"}, "")

	got, warnings := r.Resolve("broken [[oops and [[$footer]]")
	assert.Equal(t, "broken [[oops and <!-- chunk: footer -->F<!-- /chunk: footer -->", got)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "unterminated tag at offset 7")
}

func TestResolveRewritesAssets(t *testing.T) {
	r := New(chunkMap{"logo": `<img src='assets/images/logo.png'>`}, "acme")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"root relative", `<img src="/assets/logo.png">`, `<img src="/acme/assets/logo.png">`},
		{"document relative", `<a href="assets/files/a.pdf">`, `<a href="/acme/assets/files/a.pdf">`},
		{"single quotes", `<img src='/assets/userupload/x.jpg'>`, `<img src='/acme/assets/userupload/x.jpg'>`},
		{"spacing and case", `<A HREF = "/assets/x">`, `<A HREF = "/acme/assets/x">`},
		{"unquoted", `<img src=/assets/x.png>`, `<img src=/acme/assets/x.png>`},
		{"other paths untouched", `<img src="/media/x.png"> <a href="https://x.test/assets/y">`, `<img src="/media/x.png"> <a href="https://x.test/assets/y">`},
		{"already namespaced", `<img src="/acme/assets/x.png">`, `<img src="/acme/assets/x.png">`},
		{"inside chunk", `[[$logo]]`, `<!-- chunk: logo --><img src='/acme/assets/images/logo.png'><!-- /chunk: logo -->`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := r.Resolve(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveKeepsNeutralizedTagVerbatim(t *testing.T) {
	r := New(chunkMap{}, "acme")

	tag := `[[Gallery? &src="/assets/gallery"]]`
	got, _ := r.Resolve(tag)
	assert.Equal(t, Neutralize(tag), got)
}

func TestResolveWithoutProjectLeavesAssets(t *testing.T) {
	r := New(chunkMap{}, "")

	in := `<img src="/assets/logo.png">`
	got, _ := r.Resolve(in)
	assert.Equal(t, in, got)
}

func TestResolvePlainText(t *testing.T) {
	r := New(chunkMap{}, "acme")

	in := strings.Repeat("plain [ text ] with ] brackets ", 3)
	got, warnings := r.Resolve(in)
	assert.Empty(t, warnings)
	assert.Equal(t, in, got)
}

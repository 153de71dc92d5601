package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/dumppipe/core/assemble"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dumppipe.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFrom(t *testing.T) {
	path := writeConfig(t, `
project = "acme"
output = "../site/src/content"
media = "./media"
referenced_only = true
table_prefix = "abc_"
layout = "id"
tv_keys = "name"
extended = true
concurrency = 2

[templates]
home_id = 4
source_names = true

[templates.names]
7 = "landing"

[scrape]
timeout = "5s"
max_pages = 20
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "acme", cfg.Project)
	assert.Equal(t, "abc_", cfg.TablePrefix)
	assert.Equal(t, "id", cfg.Layout)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Scrape.Timeout.Duration)
	assert.Equal(t, 20, cfg.Scrape.MaxPages)

	// Unset keys keep their defaults.
	assert.Equal(t, FormatMarkdown, cfg.Format)
	assert.Equal(t, BodyHTML, cfg.BodyFormat)
	assert.Equal(t, 64, cfg.MaxDepth)

	namer, err := cfg.Templates.Namer()
	require.NoError(t, err)
	assert.Equal(t, assemble.TemplateNamer{
		HomeID:       4,
		HomeName:     "home",
		StandardName: "standard",
		SourceNames:  true,
		Names:        map[int64]string{7: "landing"},
	}, namer)
}

func TestLoadFromRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "project = \"acme\"\nprojekt = \"typo\"\n")

	_, err := LoadFrom(path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "projekt")
}

func TestLoadFromBadTOML(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, "project = "))
	require.Error(t, err)
}

func TestLoadDefaultFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	_, err = Load("missing.toml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing project", func(c *Config) { c.Project = "" }, "project is required"},
		{"nested project", func(c *Config) { c.Project = "a/b" }, "single path segment"},
		{"format", func(c *Config) { c.Format = "docx" }, "format must be one of markdown|json|pdf"},
		{"body format", func(c *Config) { c.BodyFormat = "text" }, "body_format"},
		{"layout", func(c *Config) { c.Layout = "tree" }, "layout"},
		{"tv keys", func(c *Config) { c.TVKeys = "caption" }, "tv_keys"},
		{"depth", func(c *Config) { c.MaxDepth = 0 }, "max_depth"},
		{"concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"referenced only", func(c *Config) { c.ReferencedOnly = true }, "referenced_only requires media"},
		{"template key", func(c *Config) { c.Templates.Names = map[string]string{"home": "x"} }, "not a template id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Project = "acme"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Defaults()
	cfg.Project = "acme"
	assert.NoError(t, cfg.Validate())
}

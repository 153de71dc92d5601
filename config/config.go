// Package config loads dumppipe settings from a TOML file.
//
// Every setting has a default, so the file is optional; command-line flags
// override file values when they are set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gaurav-prasanna/dumppipe/core/assemble"
	"github.com/gaurav-prasanna/dumppipe/core/hierarchy"
	"github.com/gaurav-prasanna/dumppipe/core/output"
	"github.com/gaurav-prasanna/dumppipe/core/tables"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "dumppipe.toml"

// Body formats.
const (
	BodyHTML     = "html"
	BodyMarkdown = "markdown"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatPDF      = "pdf"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full set of run settings.
type Config struct {
	Project        string `toml:"project"`
	Output         string `toml:"output"`
	Media          string `toml:"media"`
	ReferencedOnly bool   `toml:"referenced_only"`
	Clean          bool   `toml:"clean"`
	TablePrefix    string `toml:"table_prefix"`
	MaxDepth       int    `toml:"max_depth"`
	BodyFormat     string `toml:"body_format"`
	Format         string `toml:"format"`
	Layout         string `toml:"layout"`
	TVKeys         string `toml:"tv_keys"`
	Extended       bool   `toml:"extended"`
	Concurrency    int    `toml:"concurrency"`
	Index          string `toml:"index"`
	PassageSize    int    `toml:"passage_size"`

	Templates Templates `toml:"templates"`
	Scrape    Scrape    `toml:"scrape"`
}

// Templates configures template naming.
type Templates struct {
	HomeID       int64             `toml:"home_id"`
	HomeName     string            `toml:"home_name"`
	StandardName string            `toml:"standard_name"`
	SourceNames  bool              `toml:"source_names"`
	Names        map[string]string `toml:"names"` // template id → name
}

// Scrape configures the live-site scraper.
type Scrape struct {
	UserAgent string   `toml:"user_agent"`
	Timeout   Duration `toml:"timeout"`
	MaxPages  int      `toml:"max_pages"`
}

// Duration is a time.Duration decoded from a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		Output:      ".",
		TablePrefix: tables.DefaultPrefix,
		MaxDepth:    hierarchy.DefaultMaxDepth,
		BodyFormat:  BodyHTML,
		Format:      FormatMarkdown,
		Layout:      output.LayoutSlug,
		TVKeys:      assemble.KeyByID,
		Concurrency: runtime.NumCPU(),
		Templates: Templates{
			HomeID:       assemble.DefaultHomeID,
			HomeName:     assemble.DefaultHomeName,
			StandardName: assemble.DefaultStandardName,
		},
		Scrape: Scrape{Timeout: Duration{30 * time.Second}},
	}
}

// Load loads path, or DefaultFile when path is empty. A missing DefaultFile
// yields the defaults; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); os.IsNotExist(err) {
			return Defaults(), nil
		}
		path = DefaultFile
	}
	return LoadFrom(path)
}

// LoadFrom decodes the file at path over the defaults. Unknown keys are
// rejected so typos do not pass silently.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks enumerations and required fields.
func (c *Config) Validate() error {
	var problems []string
	check := func(field, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			problems = append(problems, fmt.Sprintf("%s must be one of %s (got %q)", field, strings.Join(allowed, "|"), value))
		}
	}

	if c.Project == "" {
		problems = append(problems, "project is required")
	} else if strings.ContainsAny(c.Project, `/\`) || c.Project == "." || c.Project == ".." {
		problems = append(problems, fmt.Sprintf("project must be a single path segment (got %q)", c.Project))
	}
	check("body_format", c.BodyFormat, BodyHTML, BodyMarkdown)
	check("format", c.Format, FormatMarkdown, FormatJSON, FormatPDF)
	check("layout", c.Layout, output.LayoutSlug, output.LayoutID)
	check("tv_keys", c.TVKeys, assemble.KeyByID, assemble.KeyByName)
	if c.MaxDepth < 1 {
		problems = append(problems, "max_depth must be at least 1")
	}
	if c.Concurrency < 1 {
		problems = append(problems, "concurrency must be at least 1")
	}
	if c.PassageSize < 0 {
		problems = append(problems, "passage_size must not be negative")
	}
	if c.ReferencedOnly && c.Media == "" {
		problems = append(problems, "referenced_only requires media")
	}
	if _, err := c.Templates.Namer(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Namer converts the template settings into an assemble.TemplateNamer.
func (t Templates) Namer() (assemble.TemplateNamer, error) {
	n := assemble.TemplateNamer{
		HomeID:       t.HomeID,
		HomeName:     t.HomeName,
		StandardName: t.StandardName,
		SourceNames:  t.SourceNames,
	}
	if len(t.Names) == 0 {
		return n, nil
	}
	n.Names = make(map[int64]string, len(t.Names))
	for k, v := range t.Names {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return assemble.TemplateNamer{}, fmt.Errorf("templates.names key %q is not a template id", k)
		}
		n.Names[id] = v
	}
	return n, nil
}

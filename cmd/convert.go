// Package cmd — convert command.
// Runs the full pipeline over one dump:
// parse → index → assemble → render → write, then media and manifest.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gaurav-prasanna/dumppipe/config"
	"github.com/gaurav-prasanna/dumppipe/core"
	"github.com/gaurav-prasanna/dumppipe/core/assemble"
	"github.com/gaurav-prasanna/dumppipe/core/dump"
	"github.com/gaurav-prasanna/dumppipe/core/hierarchy"
	"github.com/gaurav-prasanna/dumppipe/core/normalize"
	"github.com/gaurav-prasanna/dumppipe/core/output"
	"github.com/gaurav-prasanna/dumppipe/core/render"
	"github.com/gaurav-prasanna/dumppipe/core/tables"
	"github.com/gaurav-prasanna/dumppipe/logging"
)

// maxListedWarnings caps the warnings echoed to stdout; the log has all of them.
const maxListedWarnings = 20

var convertCmd = &cobra.Command{
	Use:   "convert <dump.sql>",
	Short: "Convert a MODX SQL dump into documents",
	Long: `Convert parses a MODX SQL dump, resolves every published resource into a
document (frontmatter plus body) and writes one file per document under
<output>/<project>/pages.

Examples:
  dumppipe convert site.sql --project acme
  dumppipe convert site.sql --project acme --body-format markdown --format json
  dumppipe convert site.sql --project acme --media ./assets --referenced-only
  dumppipe convert site.sql --project acme --index runs.db`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd.Flags())
	rootCmd.AddCommand(convertCmd)
}

func addConvertFlags(f *pflag.FlagSet) {
	f.String("project", "", "Project name; namespaces output and asset paths (required)")
	f.StringP("output", "o", ".", "Output directory")
	f.String("media", "", "Media directory to copy into <output>/../public/<project>")
	f.Bool("referenced-only", false, "Copy only media referenced by emitted documents")
	f.Bool("clean", false, "Remove previously written pages before writing")
	f.String("format", config.FormatMarkdown, "Output format: markdown, json, pdf")
	f.String("body-format", config.BodyHTML, "Body format: html, markdown")
	f.String("layout", output.LayoutSlug, "File layout: slug, id")
	f.String("tv-keys", assemble.KeyByID, "Template-variable keys: id (tv_<id>), name")
	f.Bool("extended", false, "Add longtitle, menuindex, dates and flags to the frontmatter")
	f.Int("concurrency", 0, "Parallel document writers (default: number of CPUs)")
	f.String("index", "", "SQLite manifest file recording the run")
	f.String("table-prefix", tables.DefaultPrefix, "Table name prefix used in the dump")
	f.Int("max-depth", hierarchy.DefaultMaxDepth, "Maximum parent-chain depth when resolving slugs")
	f.Int64("home-template", assemble.DefaultHomeID, "Template id mapped to the home template")
	f.Int("passage-size", 0, "Split JSON text into passages of this many words (0 disables)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := logging.WithRun(cmd.Context(), logging.NewRunID())
	_, err = convertDump(ctx, cfg, args[0], cmd.OutOrStdout())
	return err
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(f *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, fn func() error) {
		if err == nil && f.Changed(name) {
			err = fn()
		}
	}
	str := func(name string, dst *string) {
		set(name, func() (e error) { *dst, e = f.GetString(name); return })
	}
	boolean := func(name string, dst *bool) {
		set(name, func() (e error) { *dst, e = f.GetBool(name); return })
	}
	integer := func(name string, dst *int) {
		set(name, func() (e error) { *dst, e = f.GetInt(name); return })
	}

	str("project", &cfg.Project)
	str("output", &cfg.Output)
	str("media", &cfg.Media)
	boolean("referenced-only", &cfg.ReferencedOnly)
	boolean("clean", &cfg.Clean)
	str("format", &cfg.Format)
	str("body-format", &cfg.BodyFormat)
	str("layout", &cfg.Layout)
	str("tv-keys", &cfg.TVKeys)
	boolean("extended", &cfg.Extended)
	integer("concurrency", &cfg.Concurrency)
	str("index", &cfg.Index)
	str("table-prefix", &cfg.TablePrefix)
	integer("max-depth", &cfg.MaxDepth)
	integer("passage-size", &cfg.PassageSize)
	set("home-template", func() (e error) { cfg.Templates.HomeID, e = f.GetInt64("home-template"); return })
	integer("max-pages", &cfg.Scrape.MaxPages)
	set("timeout", func() (e error) { cfg.Scrape.Timeout.Duration, e = f.GetDuration("timeout"); return })
	str("user-agent", &cfg.Scrape.UserAgent)
	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}
	return nil
}

// convertDump runs the pipeline and prints progress to out. Row-level
// problems end up in the summary as warnings; an error means the run
// could not complete.
func convertDump(ctx context.Context, cfg *config.Config, path string, out io.Writer) (summary, error) {
	var sum summary
	log := logging.FromContext(ctx)
	started := time.Now()

	idx, warnings, err := loadIndex(path, cfg.TablePrefix)
	if err != nil {
		return sum, err
	}
	log.Info("dump indexed", "path", path, "tables", len(idx.Tables()), "resources", len(idx.Contents()))

	opts, err := assembleOptions(cfg)
	if err != nil {
		return sum, err
	}
	res := assemble.New(idx, opts).Run()
	warnings = append(warnings, res.Warnings...)

	entries, emitWarnings, err := emitDocuments(ctx, cfg, res.Documents, out, &sum)
	warnings = append(warnings, emitWarnings...)
	if err != nil {
		return sum, err
	}

	if cfg.Media != "" {
		stats, mediaWarnings, err := copyMedia(ctx, cfg, res.Assets)
		warnings = append(warnings, mediaWarnings...)
		if err != nil {
			return sum, err
		}
		sum.Media = stats.Files
		printOK(out, "media %s", styleMuted.Render(fmt.Sprintf("%d files, %d bytes", stats.Files, stats.Bytes)))
	}

	if cfg.Index != "" {
		if err := recordRun(ctx, cfg, output.Run{
			Project:   cfg.Project,
			Source:    path,
			StartedAt: started,
			Documents: entries,
			Assets:    res.Assets,
			Warnings:  warnings,
			Skipped:   res.Skipped,
		}); err != nil {
			return sum, err
		}
		printOK(out, "manifest %s", styleMuted.Render(cfg.Index))
	}

	logging.Warnings(ctx, warnings)
	sum.Skipped = res.Skipped
	sum.Filtered = res.Filtered
	sum.Warnings = len(warnings)
	sum.Assets = len(res.Assets)

	if len(warnings) > 0 {
		fmt.Fprintln(out)
		printWarnings(out, warnings, maxListedWarnings)
	}
	sum.print(out)
	log.Info("run complete", slog.Int("documents", sum.Documents), slog.Int("skipped", sum.Skipped),
		slog.Int("warnings", sum.Warnings), slog.Duration("elapsed", time.Since(started)))
	return sum, nil
}

// loadIndex parses the dump at path and indexes its tables. Parse and index
// warnings are returned together.
func loadIndex(path, prefix string) (*tables.Index, []core.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	d, err := dump.ParseReader(f)
	if err != nil {
		return nil, nil, err
	}
	idx, idxWarnings, err := tables.Build(d, prefix)
	warnings := append(d.Warnings, idxWarnings...)
	if err != nil {
		return nil, warnings, err
	}
	return idx, warnings, nil
}

func assembleOptions(cfg *config.Config) (assemble.Options, error) {
	namer, err := cfg.Templates.Namer()
	if err != nil {
		return assemble.Options{}, err
	}
	return assemble.Options{
		Project:   cfg.Project,
		MaxDepth:  cfg.MaxDepth,
		Templates: namer,
		TVKeys:    cfg.TVKeys,
		Extended:  cfg.Extended,
	}, nil
}

// emitDocuments converts bodies when requested, renders and writes docs and
// prints one progress line per document.
func emitDocuments(ctx context.Context, cfg *config.Config, docs []core.Document, out io.Writer, sum *summary) ([]output.DocumentEntry, []core.Warning, error) {
	var warnings []core.Warning
	normalizer := normalize.New()
	if cfg.BodyFormat == config.BodyMarkdown {
		warnings = append(warnings, markdownBodies(docs, normalizer)...)
	}
	renderer := selectRenderer(cfg, normalizer)

	if cfg.Clean {
		pages := filepath.Join(cfg.Output, cfg.Project, output.PagesDir)
		if err := os.RemoveAll(pages); err != nil {
			return nil, warnings, fmt.Errorf("cleaning %s: %w", pages, err)
		}
	}
	w, err := output.New(cfg.Output, cfg.Project, cfg.Layout)
	if err != nil {
		return nil, warnings, err
	}

	written, planWarnings, err := w.WriteAll(ctx, docs, renderer, cfg.Concurrency)
	warnings = append(warnings, planWarnings...)
	if err != nil {
		return nil, warnings, fmt.Errorf("writing documents: %w", err)
	}

	entries := make([]output.DocumentEntry, 0, len(written))
	for i, wr := range written {
		doc := docs[i]
		if wr.Err != nil {
			sum.Failed++
			printFail(out, "%s %s", doc.Slug, styleMuted.Render(wr.Err.Error()))
			warnings = append(warnings, core.Warning{
				Stage:   core.StageOutput,
				Ref:     core.ResourceRef(doc.ID),
				Message: "write failed: " + wr.Err.Error(),
			})
			continue
		}
		sum.Documents++
		printOK(out, "%s %s", doc.Slug, styleMuted.Render("→ "+wr.Path))
		entries = append(entries, output.DocumentEntry{
			ID:       doc.ID,
			Slug:     doc.Slug,
			Title:    doc.Title,
			Template: doc.TemplateName,
			Path:     wr.Path,
			Bytes:    wr.Bytes,
		})
	}
	return entries, warnings, nil
}

// markdownBodies converts each body to Markdown in place. A body that fails
// to convert keeps its HTML and yields a warning.
func markdownBodies(docs []core.Document, n core.Normalizer) []core.Warning {
	var warnings []core.Warning
	for i := range docs {
		md, err := n.Normalize(docs[i].Body)
		if err != nil {
			warnings = append(warnings, core.Warning{
				Stage:   core.StageOutput,
				Ref:     core.ResourceRef(docs[i].ID),
				Message: "markdown conversion failed, body kept as HTML: " + err.Error(),
			})
			continue
		}
		docs[i].Body = md
	}
	return warnings
}

func selectRenderer(cfg *config.Config, n core.Normalizer) core.Renderer {
	markdownBody := cfg.BodyFormat == config.BodyMarkdown
	switch cfg.Format {
	case config.FormatJSON:
		return render.NewJSONRenderer(markdownBody, cfg.PassageSize)
	case config.FormatPDF:
		if markdownBody {
			return render.NewPDFRenderer(nil)
		}
		return render.NewPDFRenderer(n)
	default:
		return render.NewMarkdownRenderer()
	}
}

func copyMedia(ctx context.Context, cfg *config.Config, refs []string) (output.MediaStats, []core.Warning, error) {
	dst := output.PublicDir(cfg.Output, cfg.Project)
	if cfg.ReferencedOnly {
		stats, warnings, err := output.CopyReferenced(ctx, cfg.Media, dst, refs)
		if err != nil {
			return stats, warnings, fmt.Errorf("copying referenced media: %w", err)
		}
		return stats, warnings, nil
	}
	stats, err := output.CopyMedia(ctx, cfg.Media, dst)
	if err != nil {
		return stats, nil, fmt.Errorf("copying media: %w", err)
	}
	return stats, nil, nil
}

// recordRun stores run in the manifest at cfg.Index under the context's run id.
func recordRun(ctx context.Context, cfg *config.Config, run output.Run) error {
	m, err := output.OpenManifest(cfg.Index)
	if err != nil {
		return err
	}
	defer m.Close()

	run.ID = logging.RunID(ctx)
	if run.ID == "" {
		run.ID = logging.NewRunID()
	}
	return m.Record(ctx, run)
}

// parseID parses a resource id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid resource id %q", s)
	}
	return id, nil
}

// Package cmd — scrape command.
// Fetches rendered pages from the live site and writes them as documents,
// for content the dump cannot reproduce (snippet output, for instance).
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/dumppipe/config"
	"github.com/gaurav-prasanna/dumppipe/core"
	"github.com/gaurav-prasanna/dumppipe/core/assemble"
	"github.com/gaurav-prasanna/dumppipe/core/extract"
	"github.com/gaurav-prasanna/dumppipe/core/fetch"
	"github.com/gaurav-prasanna/dumppipe/core/output"
	"github.com/gaurav-prasanna/dumppipe/crawl"
	"github.com/gaurav-prasanna/dumppipe/logging"
)

// ScrapedTemplate is the template designation of scraped documents.
const ScrapedTemplate = "scraped"

var scrapeCmd = &cobra.Command{
	Use:   "scrape <site-url>",
	Short: "Scrape rendered pages from the live site",
	Long: `Scrape fetches pages from the running site, extracts their main content and
writes them as documents with template "scraped". Page slugs are taken from a
dump (--dump) or discovered from sitemap.xml, falling back to a link crawl.

Examples:
  dumppipe scrape https://example.com --project acme
  dumppipe scrape https://example.com --project acme --dump site.sql
  dumppipe scrape https://example.com --project acme --max-pages 20 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	addScrapeFlags(scrapeCmd.Flags())
	rootCmd.AddCommand(scrapeCmd)
}

func addScrapeFlags(f *pflag.FlagSet) {
	f.String("project", "", "Project name; namespaces output (required)")
	f.StringP("output", "o", ".", "Output directory")
	f.String("format", config.FormatMarkdown, "Output format: markdown, json, pdf")
	f.String("body-format", config.BodyHTML, "Body format: html, markdown")
	f.String("layout", output.LayoutSlug, "File layout: slug, id")
	f.Int("concurrency", 0, "Parallel fetches and writers (default: number of CPUs)")
	f.String("index", "", "SQLite manifest file recording the run")
	f.String("dump", "", "Take page slugs from the published resources of this dump")
	f.Int("max-pages", 0, "Maximum pages to discover (default: 100)")
	f.Duration("timeout", 0, "Per-request timeout (default: 30s)")
	f.String("user-agent", "", "User-Agent header sent with requests")
}

func runScrape(cmd *cobra.Command, args []string) error {
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
	dumpPath, err := cmd.Flags().GetString("dump")
	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}

	ctx := logging.WithRun(cmd.Context(), logging.NewRunID())
	fetcher := fetch.New(cfg.Scrape.Timeout.Duration, cfg.Scrape.UserAgent)
	_, err = scrapeSite(ctx, cfg, fetcher, args[0], dumpPath, cmd.OutOrStdout())
	return err
}

// scrapeSite fetches every page of site and writes it as a document. Pages
// that fail to fetch or extract are reported and skipped.
func scrapeSite(ctx context.Context, cfg *config.Config, fetcher core.Fetcher, site, dumpPath string, out io.Writer) (summary, error) {
	var sum summary
	log := logging.FromContext(ctx)
	started := time.Now()

	urls, warnings, err := scrapeTargets(ctx, cfg, fetcher, site, dumpPath)
	if err != nil {
		return sum, err
	}
	log.Info("scrape targets", "site", site, "pages", len(urls))

	docs := make([]*core.Document, len(urls))
	pageWarnings := make([]*core.Warning, len(urls))
	extractor := extract.New()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))
	for i, u := range urls {
		g.Go(func() error {
			doc, err := scrapePage(gctx, fetcher, extractor, u)
			if err != nil {
				pageWarnings[i] = &core.Warning{Stage: core.StageFetch, Ref: u, Message: err.Error()}
				return nil
			}
			doc.ID = int64(i + 1)
			docs[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	var emitted []core.Document
	for i := range urls {
		if pageWarnings[i] != nil {
			sum.Skipped++
			printFail(out, "%s %s", urls[i], styleMuted.Render(pageWarnings[i].Message))
			warnings = append(warnings, *pageWarnings[i])
			continue
		}
		emitted = append(emitted, *docs[i])
	}

	entries, emitWarnings, err := emitDocuments(ctx, cfg, emitted, out, &sum)
	warnings = append(warnings, emitWarnings...)
	if err != nil {
		return sum, err
	}

	assets := assemble.FindAssets(bodies(emitted)...)
	if cfg.Index != "" {
		if err := recordRun(ctx, cfg, output.Run{
			Project:   cfg.Project,
			Source:    site,
			StartedAt: started,
			Documents: entries,
			Assets:    assets,
			Warnings:  warnings,
			Skipped:   sum.Skipped,
		}); err != nil {
			return sum, err
		}
		printOK(out, "manifest %s", styleMuted.Render(cfg.Index))
	}

	logging.Warnings(ctx, warnings)
	sum.Warnings = len(warnings)
	sum.Assets = len(assets)
	if len(warnings) > 0 {
		fmt.Fprintln(out)
		printWarnings(out, warnings, maxListedWarnings)
	}
	sum.print(out)
	return sum, nil
}

// scrapeTargets returns the page URLs to fetch: the slugs of the dump's
// published documents when dumpPath is set, discovered pages otherwise.
func scrapeTargets(ctx context.Context, cfg *config.Config, fetcher core.Fetcher, site, dumpPath string) ([]string, []core.Warning, error) {
	if dumpPath == "" {
		urls, err := crawl.NewDiscoverer(fetcher, cfg.Scrape.MaxPages).Discover(ctx, site)
		if err != nil {
			return nil, nil, fmt.Errorf("discovering pages: %w", err)
		}
		return urls, nil, nil
	}

	idx, warnings, err := loadIndex(dumpPath, cfg.TablePrefix)
	if err != nil {
		return nil, warnings, err
	}
	opts, err := assembleOptions(cfg)
	if err != nil {
		return nil, warnings, err
	}
	res := assemble.New(idx, opts).Run()
	warnings = append(warnings, res.Warnings...)

	urls := make([]string, 0, len(res.Documents))
	seen := make(map[string]bool, len(res.Documents))
	for _, doc := range res.Documents {
		u, err := crawl.JoinSlug(site, doc.Slug)
		if err != nil {
			warnings = append(warnings, core.Warning{
				Stage:   core.StageFetch,
				Ref:     core.ResourceRef(doc.ID),
				Message: fmt.Sprintf("slug %q is not a valid URL path", doc.Slug),
			})
			continue
		}
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls, warnings, nil
}

func scrapePage(ctx context.Context, fetcher core.Fetcher, extractor *extract.HTMLExtractor, pageURL string) (core.Document, error) {
	result, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return core.Document{}, err
	}
	page, err := extractor.ExtractPage(result.HTML)
	if err != nil {
		return core.Document{}, fmt.Errorf("extracting %s: %w", pageURL, err)
	}
	slug := crawl.SlugOf(result.URL)
	return core.Document{
		Title:        page.Title,
		Slug:         slug,
		Segments:     crawl.Segments(slug),
		Description:  page.Description,
		TemplateName: ScrapedTemplate,
		Body:         page.Content,
	}, nil
}

func bodies(docs []core.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Body
	}
	return out
}

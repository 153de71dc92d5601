// Package cmd — show command.
// Resolves a single resource and previews it in the terminal.
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/dumppipe/config"
	"github.com/gaurav-prasanna/dumppipe/core/assemble"
	"github.com/gaurav-prasanna/dumppipe/core/normalize"
	"github.com/gaurav-prasanna/dumppipe/core/render"
	"github.com/gaurav-prasanna/dumppipe/core/tables"
)

var showCmd = &cobra.Command{
	Use:   "show <dump.sql> <id>",
	Short: "Preview one resource as it would be converted",
	Long: `Show resolves a single resource from a dump and prints its frontmatter and
body. The body is converted to Markdown and rendered for the terminal unless
--raw is given.

Examples:
  dumppipe show site.sql 12
  dumppipe show site.sql 12 --project acme --raw`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	f := showCmd.Flags()
	f.String("project", "", "Project name used to namespace asset paths")
	f.String("table-prefix", tables.DefaultPrefix, "Table name prefix used in the dump")
	f.String("tv-keys", assemble.KeyByID, "Template-variable keys: id (tv_<id>), name")
	f.Bool("extended", false, "Add longtitle, menuindex, dates and flags to the frontmatter")
	f.Bool("raw", false, "Print the processed body as stored, without rendering")

	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetBool("raw")
	return showResource(cfg, args[0], id, raw, cmd.OutOrStdout())
}

func showResource(cfg *config.Config, path string, id int64, raw bool, out io.Writer) error {
	idx, _, err := loadIndex(path, cfg.TablePrefix)
	if err != nil {
		return err
	}
	row, ok := idx.Content(id)
	if !ok {
		return fmt.Errorf("resource %d not found in dump", id)
	}

	opts, err := assembleOptions(cfg)
	if err != nil {
		return err
	}
	doc, warnings, err := assemble.New(idx, opts).Assemble(row)
	if err != nil {
		return err
	}

	fm, err := render.Frontmatter(doc.Frontmatter())
	if err != nil {
		return fmt.Errorf("rendering frontmatter: %w", err)
	}
	fmt.Fprintln(out, styleAccent.Render("---"))
	fmt.Fprint(out, string(fm))
	fmt.Fprintln(out, styleAccent.Render("---"))
	if !assemble.Publishable(row) {
		fmt.Fprintln(out, styleMuted.Render("(unpublished or deleted: not emitted by convert)"))
	}
	fmt.Fprintln(out)

	body := doc.Body
	if !raw {
		md, err := normalize.New().Normalize(body)
		if err != nil {
			return fmt.Errorf("converting body: %w", err)
		}
		if body, err = renderMarkdown(md); err != nil {
			return fmt.Errorf("rendering body: %w", err)
		}
	}
	fmt.Fprintln(out, body)

	if len(warnings) > 0 {
		printWarnings(out, warnings, 0)
	}
	return nil
}

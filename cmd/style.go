// Package cmd — terminal styling.
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/gaurav-prasanna/dumppipe/core"
)

var (
	styleAccent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))
	styleMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	styleBold   = lipgloss.NewStyle().Bold(true)
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
)

const previewWidth = 100

func printOK(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "✓ "+fmt.Sprintf(format, args...))
}

func printFail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleError.Render("✗ "+fmt.Sprintf(format, args...)))
}

func printWarnings(w io.Writer, warnings []core.Warning, limit int) {
	for i, warn := range warnings {
		if limit > 0 && i == limit {
			fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("  … %d more (see log)", len(warnings)-limit)))
			return
		}
		fmt.Fprintln(w, styleMuted.Render("  ⚠ "+warn.String()))
	}
}

// summary is the closing report of a run.
type summary struct {
	Documents int
	Failed    int
	Skipped   int
	Filtered  int
	Warnings  int
	Assets    int
	Media     int
}

func (s summary) print(w io.Writer) {
	parts := []string{
		styleBold.Render(fmt.Sprintf("%d documents", s.Documents)),
		fmt.Sprintf("%d skipped", s.Skipped),
		fmt.Sprintf("%d warnings", s.Warnings),
		fmt.Sprintf("%d assets", s.Assets),
	}
	if s.Filtered > 0 {
		parts = append(parts, fmt.Sprintf("%d unpublished", s.Filtered))
	}
	if s.Failed > 0 {
		parts = append(parts, styleError.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.Media > 0 {
		parts = append(parts, fmt.Sprintf("%d media files", s.Media))
	}
	fmt.Fprintln(w, "\n"+strings.Join(parts, styleMuted.Render(" · ")))
}

// renderMarkdown renders Markdown for the terminal.
func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(previewWidth),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

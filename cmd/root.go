// Package cmd implements the dumppipe CLI using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/dumppipe/config"
	"github.com/gaurav-prasanna/dumppipe/logging"
)

// Global flag variables.
var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "dumppipe",
	Short: "dumppipe — convert a MODX SQL dump into static-site content",
	Long: `dumppipe reads a MODX SQL dump (no database needed) and writes one document
per published resource: YAML frontmatter plus the page body, with chunks
expanded, snippet tags neutralized and asset paths namespaced per project.

Usage:
  dumppipe convert <dump.sql> --project acme [flags]
  dumppipe show <dump.sql> <id>
  dumppipe scrape <site-url> --project acme [flags]`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(flagLogLevel, flagLogFormat, os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format: text, json")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig loads the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

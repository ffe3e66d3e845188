// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for modlink.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"modlink/internal/config"
	"modlink/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// app is the shared composition root for all command handlers.
	app = NewApp(Dependencies{})

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "modlink",
		Short: "A lazy module linker",
		Long: TitleStyle.Render("modlink") + SubtitleStyle.Render(" - A lazy module linker") + `

modlink links directories of modules into a dependency graph with
per-package visibility. Modules declare their dependencies, exported
packages, and service contracts in 'modfile.cue' files; legacy archives
carry a plain 'manifest.toml' and are treated as automatic modules.

Modules are resolved lazily: nothing is read until a symbol, package
listing, or dependency graph is actually requested.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Lay each module out in a '<name>.mod' directory
  2. Add the parent directory to search_paths in your config
  3. Inspect and resolve with the commands below

` + SubtitleStyle.Render("Examples:") + `
  modlink inspect --all            List every module on the search paths
  modlink inspect app.main         Show a module's descriptor and exports
  modlink graph app.main           Print the resolved dependency graph
  modlink resolve app.main pkg.X   Resolve a symbol through visibility rules
  modlink config show              Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/modlink/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(newInspectCommand(app))
	rootCmd.AddCommand(newGraphCommand(app))
	rootCmd.AddCommand(newResolveCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	// Set custom config file path if provided via --config flag
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Always surface config loading errors to the user
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}

	// Apply verbose from config if not set via flag
	if cfg != nil && !verbose {
		verbose = cfg.UI.Verbose
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

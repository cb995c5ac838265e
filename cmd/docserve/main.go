// Package main is the entry point for the docserve CLI.
//
// docserve serves a built documentation tree on localhost and opens it in
// the browser. Without a subcommand it behaves like "docserve serve".
//
// Usage:
//
//	docserve                          # Serve the docs next to the binary
//	docserve serve --base-dir ./docs  # Serve a specific docs directory
//	docserve validate -c docserve.yaml
//	docserve version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd serves the documentation when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "docserve",
	Short: "Preview built documentation on localhost",
	Long: `docserve serves a pre-built HTML documentation tree on localhost.

It maps:
  /                      redirect to en/latest/index.html
  /en/switcher.json      the version switcher manifest
  /en/latest/<path>      files under <base>/build/html

and opens the default page in your browser. Press ENTER or Ctrl+C to stop.

Quick start:
  1. Build the docs so that <base>/build/html/index.html exists
  2. Run: docserve --base-dir <base>
  3. Visit http://localhost:5009/en/latest/index.html

Example config:
  port: 5009
  base_dir: ${HOME}/src/project/docs
  open_browser: true`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this docserve binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "docserve %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	addServeFlags(rootCmd)
	rootCmd.AddCommand(versionCmd)
}

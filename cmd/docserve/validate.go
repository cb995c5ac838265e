package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jpalmerr/docserve/config"
	"github.com/spf13/cobra"
)

// validateCmd checks the configuration and documentation layout without
// starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and documentation layout",
	Long: `Validate the docserve configuration without starting the server.

This command loads the config file (if any), applies DOCSERVE_* environment
overrides and flags, resolves the layout, and checks that:
  - the document root is a directory
  - the default document exists
  - the switcher manifest, if present, is valid JSON

A missing switcher manifest is reported but allowed; the server answers 404
for it.

Exit codes:
  0 - Layout is servable
  1 - Config is invalid or documentation is missing

Example:
  docserve validate --base-dir ./docs
  docserve validate -c docserve.yaml`,
	SilenceUsage: true,
	RunE:         runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	flags := validateCmd.Flags()
	flags.StringP("config", "c", "", "path to config file")
	flags.String("base-dir", "", "directory containing build/html and switcher.json")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	return validateLayout(cfg, cmd.OutOrStdout())
}

// validateLayout reports the resolved layout on out and returns an error if
// it cannot be served.
func validateLayout(cfg *config.Config, out io.Writer) error {
	defaultDoc := filepath.Join(cfg.DocRoot, filepath.FromSlash(cfg.DefaultDocument))

	rootStatus := checkDir(cfg.DocRoot)
	docStatus := checkFile(defaultDoc)
	switcherStatus, switcherErr := checkSwitcher(cfg.Switcher)

	fmt.Fprintf(out, "  Doc root:         %s (%s)\n", cfg.DocRoot, rootStatus)
	fmt.Fprintf(out, "  Default document: %s (%s)\n", defaultDoc, docStatus)
	fmt.Fprintf(out, "  Switcher:         %s (%s)\n", cfg.Switcher, switcherStatus)
	fmt.Fprintf(out, "  URL:              %s\n", cfg.DefaultURL())

	var errs []error
	if rootStatus != statusOK {
		errs = append(errs, fmt.Errorf("document root %s: %s", cfg.DocRoot, rootStatus))
	} else if docStatus != statusOK {
		errs = append(errs, fmt.Errorf("default document %s: %s", defaultDoc, docStatus))
	}
	if switcherErr != nil {
		errs = append(errs, switcherErr)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid layout: %w", errors.Join(errs...))
	}

	fmt.Fprintln(out, "Layout is valid!")
	return nil
}

const (
	statusOK      = "ok"
	statusMissing = "missing"
)

func checkDir(p string) string {
	info, err := os.Stat(p)
	switch {
	case err != nil:
		return statusMissing
	case !info.IsDir():
		return "not a directory"
	default:
		return statusOK
	}
}

func checkFile(p string) string {
	info, err := os.Stat(p)
	switch {
	case err != nil:
		return statusMissing
	case !info.Mode().IsRegular():
		return "not a regular file"
	default:
		return statusOK
	}
}

func checkSwitcher(p string) (string, error) {
	if status := checkFile(p); status != statusOK {
		// absence is served as 404, not an error
		return status + ", served as 404", nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "unreadable", fmt.Errorf("switcher %s: %w", p, err)
	}
	if !json.Valid(data) {
		return "invalid JSON", fmt.Errorf("switcher %s: invalid JSON", p)
	}
	return statusOK, nil
}

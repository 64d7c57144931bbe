// Package cmd provides CLI command implementations
package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/speclib"
	"github.com/hupe1980/speclib/backend"
)

var (
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "speclib",
	Short: "Speclib - spectral library toolkit",
	Long: `Speclib reads, inspects, converts, and indexes mass spectrometry
spectral libraries.

Supported formats: ` + strings.Join(speclib.Formats(), ", ") + `

The text and json mzSpecLib dialects are readable and writable; the
remaining formats are read-only.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(indexCmd)
}

func newLogger() *speclib.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if logJSON {
		return speclib.NewJSONLogger(level)
	}

	return speclib.NewTextLogger(level)
}

func parseIndexMode(mode string) backend.IndexMode {
	switch strings.ToLower(mode) {
	case "memory":
		return backend.IndexMemory
	case "sql":
		return backend.IndexSQL
	default:
		return backend.IndexAuto
	}
}

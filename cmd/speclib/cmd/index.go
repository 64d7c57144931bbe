package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/speclib"
	"github.com/hupe1980/speclib/backend"
)

var indexFormat string

func init() {
	indexCmd.Flags().StringVarP(&indexFormat, "format", "f", "", "Library format (auto-detect if not specified)")
}

var indexCmd = &cobra.Command{
	Use:   "index [file]",
	Short: "Build a persistent offset index",
	Long: `Scan a text-based spectral library and persist its offset index as a
SQLite sidecar next to the file, so later opens skip the scan.

Database-backed formats carry their own indexes and need no sidecar.

Examples:
  speclib index consensus.mzlb.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := speclib.Open(ctx, args[0],
			speclib.WithFormat(indexFormat),
			speclib.WithIndexMode(backend.IndexSQL),
			speclib.WithLogger(newLogger()),
		)
		if err != nil {
			return err
		}
		defer lib.Close()

		count, err := lib.Count()
		if err != nil {
			return err
		}

		if _, ok := lib.Index(); !ok {
			fmt.Printf("%s format keeps its own index, nothing to do\n", lib.Format())

			return nil
		}

		fmt.Printf("Indexed %d spectra\n", count)

		return nil
	},
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/speclib"
	"github.com/hupe1980/speclib/backend"
	"github.com/hupe1980/speclib/model"
)

var (
	getFormat string
	getNumber int64
	getName   string
)

func init() {
	getCmd.Flags().StringVarP(&getFormat, "format", "f", "", "Library format (auto-detect if not specified)")
	getCmd.Flags().Int64VarP(&getNumber, "number", "n", -1, "Spectrum number to fetch")
	getCmd.Flags().StringVar(&getName, "name", "", "Spectrum name to fetch")
}

var getCmd = &cobra.Command{
	Use:   "get [file]",
	Short: "Fetch one spectrum and print it",
	Long: `Fetch a single spectrum by number or by name and print it in the
mzSpecLib text dialect.

Examples:
  speclib get --number 3 consensus.mzlb.txt
  speclib get --name "AAAAGSTSVKPIFSR/2_0_44eV" consensus.mzlb.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if getNumber < 0 && getName == "" {
			return fmt.Errorf("either --number or --name is required")
		}

		ctx := cmd.Context()

		lib, err := speclib.Open(ctx, args[0],
			speclib.WithFormat(getFormat),
			speclib.WithLogger(newLogger()),
		)
		if err != nil {
			return err
		}
		defer lib.Close()

		var s *model.Spectrum

		if getName != "" {
			s, err = lib.SpectrumByName(ctx, getName)
		} else {
			s, err = lib.Spectrum(ctx, uint64(getNumber))
		}

		if err != nil {
			return err
		}

		w := backend.NewTextWriter(os.Stdout)
		if err := w.WriteSpectrum(s); err != nil {
			return err
		}

		return w.Flush()
	},
}

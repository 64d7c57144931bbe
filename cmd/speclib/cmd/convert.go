package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/speclib"
)

var (
	convertIn        string
	convertFrom      string
	convertOut       string
	convertTo        string
	convertIndexMode string
)

func init() {
	convertCmd.Flags().StringVarP(&convertIn, "in", "i", "", "Input library path (required)")
	convertCmd.Flags().StringVarP(&convertFrom, "from", "f", "", "Input format (auto-detect if not specified)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "Output library path (required)")
	convertCmd.Flags().StringVarP(&convertTo, "to", "t", "", "Output format: text or json (guessed from output path if not specified)")
	convertCmd.Flags().StringVar(&convertIndexMode, "index", "auto", "Offset index mode for the input: auto, memory, or sql")

	_ = convertCmd.MarkFlagRequired("in")
	_ = convertCmd.MarkFlagRequired("out")
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a spectral library between formats",
	Long: `Convert a spectral library into the mzSpecLib text or json dialect.

A trailing .gz on the output path selects gzip compression.

Examples:
  # MSP to mzSpecLib text
  speclib convert --in human_serum.msp --out human_serum.mzlb.txt

  # BiblioSpec to gzipped json
  speclib convert --in library.blib --out library.mzlb.json.gz --to json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(convertIn); os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", convertIn)
		}

		written, err := speclib.Convert(cmd.Context(), convertIn, convertOut, func(o *speclib.ConvertOptions) {
			o.SourceFormat = convertFrom
			o.TargetFormat = convertTo
			o.IndexMode = parseIndexMode(convertIndexMode)
			o.Logger = newLogger()
		})
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %d spectra to %s\n", written, convertOut)

		return nil
	},
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/speclib"
	"github.com/hupe1980/speclib/attribute"
)

var describeFormat string

func init() {
	describeCmd.Flags().StringVarP(&describeFormat, "format", "f", "", "Library format (auto-detect if not specified)")
}

var describeCmd = &cobra.Command{
	Use:   "describe [file]",
	Short: "Summarize a spectral library",
	Long: `Print the format, spectrum count, library-level attributes, and
attribute sets of a spectral library.

Examples:
  speclib describe consensus.mzlb.txt
  speclib describe --format msp human_serum.msp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lib, err := speclib.Open(ctx, args[0],
			speclib.WithFormat(describeFormat),
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

		fmt.Printf("File:    %s\n", lib.Path())
		fmt.Printf("Format:  %s\n", lib.Format())
		fmt.Printf("Spectra: %d\n", count)

		if keys, err := lib.ClusterKeys(ctx); err == nil && len(keys) > 0 {
			fmt.Printf("Clusters: %d\n", len(keys))
		}

		h := lib.Header()

		if attrs := h.Attributes.All(); len(attrs) > 0 {
			fmt.Println("\nAttributes:")

			for _, a := range attrs {
				printAttribute(a)
			}
		}

		for _, block := range []struct {
			scope string
			sets  []*attribute.Set
		}{
			{"Spectrum", h.SpectrumSets},
			{"Analyte", h.AnalyteSets},
			{"Interpretation", h.InterpretationSets},
		} {
			for _, set := range block.sets {
				fmt.Printf("\nAttributeSet %s=%s:\n", block.scope, set.Name)

				for _, a := range set.Attributes.All() {
					printAttribute(a)
				}
			}
		}

		return nil
	},
}

func printAttribute(a attribute.Attribute) {
	if a.Group != "" {
		fmt.Printf("  [%s]%s=%s\n", a.Group, a.Key, a.Value)

		return
	}

	fmt.Printf("  %s=%s\n", a.Key, a.Value)
}

// Speclib - spectral library inspection and conversion tool
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/speclib/cmd/speclib/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

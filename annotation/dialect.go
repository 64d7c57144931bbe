package annotation

import "strings"

// Dialect describes the spelling tolerances of one annotation flavor. A
// dialect is a data table consumed by the single parser, not a parser of
// its own.
type Dialect struct {
	// Name identifies the dialect in diagnostics.
	Name string

	// PeptideSeries lists the series letters accepted for backbone
	// fragments.
	PeptideSeries string

	// AllowSeriesDot accepts a '.' between the series letter and the
	// ordinal ("y.7").
	AllowSeriesDot bool

	// BareIsotope accepts an isotope clause without a leading sign
	// ("y7i", "y7 2i" written as y72i is not recognized); the implied
	// sign is '+' and missing digits mean 1.
	BareIsotope bool
}

// Canonical is the strict dialect of the native text and JSON formats.
var Canonical = &Dialect{
	Name:          "canonical",
	PeptideSeries: "abcxyz",
}

// MSP tolerates the spellings found in NIST MSP peak annotations.
var MSP = &Dialect{
	Name:           "msp",
	PeptideSeries:  "abcxyz",
	AllowSeriesDot: true,
}

// SPTXT tolerates the SpectraST SPTXT spellings, which additionally write
// bare isotope markers.
var SPTXT = &Dialect{
	Name:           "sptxt",
	PeptideSeries:  "abcxyz",
	AllowSeriesDot: true,
	BareIsotope:    true,
}

func (d *Dialect) isSeries(c byte) bool {
	return strings.IndexByte(d.PeptideSeries, c) >= 0
}

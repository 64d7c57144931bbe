// Package annotation implements the peak annotation mini-language used by
// spectral library formats to describe fragment ion identities.
//
// An annotation names the ion a peak is believed to be, plus an envelope of
// qualifiers: neutral losses, isotope offset, charge, adducts, mass error,
// and confidence. Several alternative readings of one peak are separated by
// commas:
//
//	b14-H2O-NH3+[Foo]+2i^2[M+NH4]/0.5ppm*0.05
//	y3,b2-H2O
//	[_external]
//
// # Ion Types
//
// The ion position of an annotation is one of:
//
//   - PeptideFragment: series letter + ordinal (y3, b14)
//   - Internal: m<start>:<end> internal fragment
//   - Precursor: p
//   - Immonium: I<amino acid>[modification]
//   - Reporter: r[label]
//   - Formula: f{C13H9}
//   - SMILES: s{CC(=O)O}
//   - Unknown: ?<ordinal>
//   - External: _<label>
//
// An empty string or a bare "?" means the peak is unannotated and parses to
// an empty list.
//
// # Dialects
//
// Vendor formats accept looser spellings of the same language. A Dialect is
// a data table (allowed series letters, separator tolerance, isotope
// quirks), not a separate parser; see Canonical, MSP and SPTXT.
//
// # Round Trips
//
// Serialization is the exact inverse of parsing: for any accepted string s
// written in canonical form, Parse(s) followed by String() reproduces s.
package annotation

// Package model defines the spectral library entity types.
//
// # Entities
//
//   - Spectrum: one library entry; attributes, peaks, analytes and
//     interpretations
//   - Analyte: a molecule a spectrum is attributed to
//   - Interpretation: one way of assigning the spectrum's analytes, with
//     optional per-member detail
//   - SpectrumCluster: a group of related spectra referenced by key or USI
//   - PeakList: the ordered peak table of a spectrum
//
// Every entity owns one attribute.Manager; typed accessors cover the
// well-known controlled-vocabulary terms and fall through to the manager
// for everything else.
package model

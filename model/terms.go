package model

import "github.com/hupe1980/speclib/attribute"

// Well-known controlled-vocabulary terms used by the entity accessors and
// shared across format backends.
var (
	TermSpectrumName  = attribute.Term{Accession: "MS:1003061", Name: "spectrum name"}
	TermSpectrumIndex = attribute.Term{Accession: "MS:1003062", Name: "spectrum index"}
	TermChargeState   = attribute.Term{Accession: "MS:1000041", Name: "charge state"}
	TermNumberOfPeaks = attribute.Term{Accession: "MS:1003059", Name: "number of peaks"}
	TermSelectedIonMZ = attribute.Term{Accession: "MS:1000744", Name: "selected ion m/z"}

	TermAggregationType   = attribute.Term{Accession: "MS:1003065", Name: "spectrum aggregation type"}
	TermSingletonSpectrum = attribute.Term{Accession: "MS:1003066", Name: "singleton spectrum"}
	TermConsensusSpectrum = attribute.Term{Accession: "MS:1003067", Name: "consensus spectrum"}

	TermStrippedPeptide = attribute.Term{Accession: "MS:1000888", Name: "stripped peptide sequence"}
	TermProForma        = attribute.Term{Accession: "MS:1003169", Name: "proforma peptidoform sequence"}

	TermClusterKey        = attribute.Term{Accession: "MS:1003267", Name: "spectrum cluster key"}
	TermClusterMemberKeys = attribute.Term{Accession: "MS:1003268", Name: "spectrum cluster member spectrum keys"}
	TermClusterMemberUSI  = attribute.Term{Accession: "MS:1003269", Name: "spectrum cluster member USI"}

	TermSimilarSpectrumKeys = attribute.Term{Accession: "MS:1003263", Name: "similar spectrum keys"}
	TermSimilarSpectrumUSI  = attribute.Term{Accession: "MS:1003264", Name: "similar spectrum USI"}
)

package model

import "github.com/hupe1980/speclib/attribute"

// Analyte is a molecule a spectrum is attributed to. Analytes are owned by
// exactly one spectrum and referenced by id from its interpretations.
type Analyte struct {
	ID         string
	Attributes *attribute.Manager
}

// NewAnalyte returns an empty analyte with the given id.
func NewAnalyte(id string) *Analyte {
	return &Analyte{ID: id, Attributes: attribute.NewManager()}
}

// Peptide returns the ProForma peptidoform sequence when one is recorded.
func (a *Analyte) Peptide() (string, bool) {
	if v, ok := a.Attributes.First(TermProForma); ok {
		return v.String(), true
	}
	return "", false
}

// StrippedPeptide returns the unmodified peptide sequence when one is
// recorded.
func (a *Analyte) StrippedPeptide() (string, bool) {
	if v, ok := a.Attributes.First(TermStrippedPeptide); ok {
		return v.String(), true
	}
	return "", false
}

// Charge returns the analyte charge state when one is recorded.
func (a *Analyte) Charge() (int64, bool) {
	if v, ok := a.Attributes.First(TermChargeState); ok {
		return v.AsInt64()
	}
	return 0, false
}

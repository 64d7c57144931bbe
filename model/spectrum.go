package model

import (
	"github.com/hupe1980/speclib/attribute"
)

// Spectrum is one library entry: the spectrum-level attributes, the peak
// table, the analytes the spectrum is attributed to, and the
// interpretations assigning them.
//
// Key is the library entry key the source format carries (the <Spectrum=K>
// tag in the text format, the row id in database-backed formats); Index is
// the dense 0-based ordinal, stored as an attribute so it survives
// round trips.
type Spectrum struct {
	Key        uint64
	Attributes *attribute.Manager
	Peaks      PeakList

	analytes     map[string]*Analyte
	analyteOrder []string

	interpretations map[string]*Interpretation
	interpOrder     []string
}

// NewSpectrum returns an empty spectrum.
func NewSpectrum() *Spectrum {
	return &Spectrum{
		Attributes:      attribute.NewManager(),
		analytes:        make(map[string]*Analyte),
		interpretations: make(map[string]*Interpretation),
	}
}

// Name returns the spectrum name attribute.
func (s *Spectrum) Name() string {
	if v, ok := s.Attributes.First(TermSpectrumName); ok {
		return v.String()
	}
	return ""
}

// SetName replaces the spectrum name attribute.
func (s *Spectrum) SetName(name string) {
	_ = s.Attributes.Replace(TermSpectrumName, attribute.String(name))
}

// Index returns the dense 0-based library ordinal, or -1 when the spectrum
// does not carry one.
func (s *Spectrum) Index() int64 {
	if v, ok := s.Attributes.First(TermSpectrumIndex); ok {
		if n, ok := v.AsInt64(); ok {
			return n
		}
	}
	return -1
}

// SetIndex replaces the library ordinal attribute.
func (s *Spectrum) SetIndex(n int64) {
	_ = s.Attributes.Replace(TermSpectrumIndex, attribute.Int(n))
}

// PrecursorMz returns the selected ion m/z when one is recorded.
func (s *Spectrum) PrecursorMz() (float64, bool) {
	if v, ok := s.Attributes.First(TermSelectedIonMZ); ok {
		return v.AsFloat64()
	}
	return 0, false
}

// PrecursorCharge returns the precursor charge state, checking the
// spectrum's own attributes first and the analytes second.
func (s *Spectrum) PrecursorCharge() (int64, bool) {
	if v, ok := s.Attributes.First(TermChargeState); ok {
		return v.AsInt64()
	}
	for _, id := range s.analyteOrder {
		if c, ok := s.analytes[id].Charge(); ok {
			return c, true
		}
	}
	return 0, false
}

// AddAnalyte adds an analyte, replacing any previous analyte with the same
// id.
func (s *Spectrum) AddAnalyte(a *Analyte) {
	if _, ok := s.analytes[a.ID]; !ok {
		s.analyteOrder = append(s.analyteOrder, a.ID)
	}
	s.analytes[a.ID] = a
}

// GetAnalyte returns the analyte with the given id.
func (s *Spectrum) GetAnalyte(id string) (*Analyte, bool) {
	a, ok := s.analytes[id]
	return a, ok
}

// RemoveAnalyte drops an analyte and detaches it from every interpretation
// referencing it.
func (s *Spectrum) RemoveAnalyte(id string) {
	if _, ok := s.analytes[id]; !ok {
		return
	}
	delete(s.analytes, id)
	for i, aid := range s.analyteOrder {
		if aid == id {
			s.analyteOrder = append(s.analyteOrder[:i], s.analyteOrder[i+1:]...)
			break
		}
	}
	for _, iid := range s.interpOrder {
		s.interpretations[iid].RemoveAnalyte(id)
	}
}

// AnalyteIDs returns the analyte ids in insertion order.
func (s *Spectrum) AnalyteIDs() []string {
	out := make([]string, len(s.analyteOrder))
	copy(out, s.analyteOrder)
	return out
}

// Analytes returns the analytes in insertion order.
func (s *Spectrum) Analytes() []*Analyte {
	out := make([]*Analyte, len(s.analyteOrder))
	for i, id := range s.analyteOrder {
		out[i] = s.analytes[id]
	}
	return out
}

// AnalyteCount returns the number of analytes.
func (s *Spectrum) AnalyteCount() int { return len(s.analytes) }

// AddInterpretation adds an interpretation, replacing any previous one with
// the same id.
func (s *Spectrum) AddInterpretation(in *Interpretation) {
	if _, ok := s.interpretations[in.ID]; !ok {
		s.interpOrder = append(s.interpOrder, in.ID)
	}
	s.interpretations[in.ID] = in
}

// GetInterpretation returns the interpretation with the given id.
func (s *Spectrum) GetInterpretation(id string) (*Interpretation, bool) {
	in, ok := s.interpretations[id]
	return in, ok
}

// Interpretations returns the interpretations in insertion order.
func (s *Spectrum) Interpretations() []*Interpretation {
	out := make([]*Interpretation, len(s.interpOrder))
	for i, id := range s.interpOrder {
		out[i] = s.interpretations[id]
	}
	return out
}

// InterpretationCount returns the number of interpretations.
func (s *Spectrum) InterpretationCount() int { return len(s.interpretations) }

// BackfillInterpretations resolves the implicit analyte-mixture linkage:
// when the spectrum has exactly one interpretation and that interpretation
// references no analytes explicitly, every analyte of the spectrum belongs
// to it. Backends run this once per parsed record; it is never triggered by
// accessors.
func (s *Spectrum) BackfillInterpretations() {
	if len(s.interpOrder) != 1 {
		return
	}
	in := s.interpretations[s.interpOrder[0]]
	if in.AnalyteCount() > 0 {
		return
	}
	for _, id := range s.analyteOrder {
		in.AddAnalyte(s.analytes[id])
	}
}

package model

import "github.com/hupe1980/speclib/attribute"

// InterpretationMember carries per-analyte detail inside an interpretation
// of an analyte mixture.
type InterpretationMember struct {
	ID         string
	Attributes *attribute.Manager
}

// NewInterpretationMember returns an empty member with the given id.
func NewInterpretationMember(id string) *InterpretationMember {
	return &InterpretationMember{ID: id, Attributes: attribute.NewManager()}
}

// Interpretation is one way of assigning a spectrum's analytes. It
// references analytes owned by the spectrum; it never owns them.
//
// Analyte ids are scoped to the owning spectrum, so the same id may appear
// in several interpretations.
type Interpretation struct {
	ID         string
	Attributes *attribute.Manager

	analytes map[string]*Analyte
	order    []string

	Members []*InterpretationMember
}

// NewInterpretation returns an empty interpretation with the given id.
func NewInterpretation(id string) *Interpretation {
	return &Interpretation{
		ID:         id,
		Attributes: attribute.NewManager(),
		analytes:   make(map[string]*Analyte),
	}
}

// AddAnalyte references an analyte from this interpretation.
func (in *Interpretation) AddAnalyte(a *Analyte) {
	if _, ok := in.analytes[a.ID]; !ok {
		in.order = append(in.order, a.ID)
	}
	in.analytes[a.ID] = a
}

// GetAnalyte returns the referenced analyte with the given id.
func (in *Interpretation) GetAnalyte(id string) (*Analyte, bool) {
	a, ok := in.analytes[id]
	return a, ok
}

// HasAnalyte reports whether the interpretation references the id.
func (in *Interpretation) HasAnalyte(id string) bool {
	_, ok := in.analytes[id]
	return ok
}

// RemoveAnalyte drops the reference to an analyte id.
func (in *Interpretation) RemoveAnalyte(id string) {
	if _, ok := in.analytes[id]; !ok {
		return
	}
	delete(in.analytes, id)
	for i, aid := range in.order {
		if aid == id {
			in.order = append(in.order[:i], in.order[i+1:]...)
			break
		}
	}
}

// AnalyteIDs returns the referenced analyte ids in insertion order.
func (in *Interpretation) AnalyteIDs() []string {
	out := make([]string, len(in.order))
	copy(out, in.order)
	return out
}

// AnalyteCount returns the number of referenced analytes.
func (in *Interpretation) AnalyteCount() int { return len(in.analytes) }

// AddMember appends per-analyte detail.
func (in *Interpretation) AddMember(m *InterpretationMember) {
	in.Members = append(in.Members, m)
}

// GetMember returns the member with the given id.
func (in *Interpretation) GetMember(id string) (*InterpretationMember, bool) {
	for _, m := range in.Members {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

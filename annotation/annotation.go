package annotation

import (
	"strconv"
	"strings"
)

// MassError is the signed difference between the observed peak m/z and the
// theoretical m/z of the annotated ion. Unit is "Da" or "ppm".
type MassError struct {
	Value float64
	Unit  string
}

// String renders the mass error in wire form ("/" prefix excluded). The Da
// unit is implicit and never written.
func (m MassError) String() string {
	s := strconv.FormatFloat(m.Value, 'g', -1, 64)
	if m.Unit == "ppm" {
		return s + "ppm"
	}
	return s
}

// Annotation is one reading of a peak: an ion plus its qualifier envelope.
//
// Zero values mean "not stated": Charge 0 is treated as the default charge 1,
// Isotope 0 is the monoisotopic peak, and nil MassError/Confidence elide
// those clauses. NeutralLosses and Adducts hold individually signed tokens;
// a leading '-' is kept, an implied '+' is dropped and restored on
// serialization.
type Annotation struct {
	Ion           IonType
	NeutralLosses []string
	Isotope       int
	Charge        int
	Adducts       []string
	AnalyteRef    string
	MassError     *MassError
	Confidence    *float64
	Auxiliary     bool
}

// ChargeOrDefault returns the effective charge, substituting 1 when the
// annotation did not state one.
func (a Annotation) ChargeOrDefault() int {
	if a.Charge == 0 {
		return 1
	}
	return a.Charge
}

// AnalyteRefOrDefault returns the referenced analyte id, substituting "1"
// when the annotation did not state one.
func (a Annotation) AnalyteRefOrDefault() string {
	if a.AnalyteRef == "" {
		return "1"
	}
	return a.AnalyteRef
}

// String renders the annotation in wire form, eliding defaults.
func (a Annotation) String() string {
	var sb strings.Builder
	if a.Auxiliary {
		sb.WriteByte('[')
	}
	if a.AnalyteRef != "" {
		sb.WriteString(a.AnalyteRef)
		sb.WriteByte('@')
	}
	if a.Ion != nil {
		sb.WriteString(a.Ion.String())
	}
	if len(a.NeutralLosses) > 0 {
		sb.WriteString(combineTokens(a.NeutralLosses, true))
	}
	if a.Isotope != 0 {
		sb.WriteString(formatIsotope(a.Isotope))
	}
	if c := a.ChargeOrDefault(); c != 1 {
		sb.WriteByte('^')
		sb.WriteString(strconv.Itoa(c))
	}
	if len(a.Adducts) > 0 {
		sb.WriteByte('[')
		sb.WriteString(combineTokens(a.Adducts, false))
		sb.WriteByte(']')
	}
	if a.MassError != nil {
		sb.WriteByte('/')
		sb.WriteString(a.MassError.String())
	}
	if a.Confidence != nil {
		sb.WriteByte('*')
		sb.WriteString(strconv.FormatFloat(*a.Confidence, 'g', -1, 64))
	}
	if a.Auxiliary {
		sb.WriteByte(']')
	}
	return sb.String()
}

// Serialize renders a comma-separated list of alternative annotations.
func Serialize(anns []Annotation) string {
	if len(anns) == 0 {
		return "?"
	}
	parts := make([]string, len(anns))
	for i, a := range anns {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

// combineTokens joins signed tokens back into wire form. Tokens carrying a
// '-' are written verbatim; unsigned tokens get a '+' restored, including
// the first one when leadingSign is set (neutral losses always carry a
// sign, the first adduct after M does not).
func combineTokens(tokens []string, leadingSign bool) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if !strings.HasPrefix(tok, "-") && (i > 0 || leadingSign) {
			sb.WriteByte('+')
		}
		sb.WriteString(tok)
	}
	return sb.String()
}

func formatIsotope(n int) string {
	switch n {
	case 1:
		return "+i"
	case -1:
		return "-i"
	}
	if n > 0 {
		return "+" + strconv.Itoa(n) + "i"
	}
	return strconv.Itoa(n) + "i"
}

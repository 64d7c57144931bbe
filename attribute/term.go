package attribute

import "strings"

// Term is a controlled-vocabulary term reference: a CURIE accession plus
// the human-readable name, written "CURIE|name" on the wire.
type Term struct {
	Accession string
	Name      string
}

// ParseTerm splits a wire-form key on its first '|'. Input without a '|'
// yields a Term carrying only a name, which some vendor formats produce.
func ParseTerm(s string) Term {
	if i := strings.IndexByte(s, '|'); i >= 0 {
		return Term{Accession: s[:i], Name: s[i+1:]}
	}
	return Term{Name: s}
}

// String renders the term in wire form.
func (t Term) String() string {
	if t.Accession == "" {
		return t.Name
	}
	return t.Accession + "|" + t.Name
}

// IsZero reports whether the term is empty.
func (t Term) IsZero() bool { return t.Accession == "" && t.Name == "" }

// looksLikeTerm reports whether a raw value string has the "CURIE|name"
// shape: a prefixed accession, a ':', and a '|' separator.
func looksLikeTerm(s string) bool {
	bar := strings.IndexByte(s, '|')
	if bar <= 0 {
		return false
	}
	colon := strings.IndexByte(s[:bar], ':')
	if colon <= 0 || colon == bar-1 {
		return false
	}
	for i := 0; i < colon; i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	for i := colon + 1; i < bar; i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

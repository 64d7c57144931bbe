package annotation

import "strconv"

// Kind identifies the ion variant of an annotation.
type Kind string

// Ion kinds.
const (
	KindPeptideFragment Kind = "peptide"
	KindInternal        Kind = "internal"
	KindPrecursor       Kind = "precursor"
	KindImmonium        Kind = "immonium"
	KindReporter        Kind = "reporter"
	KindFormula         Kind = "formula"
	KindSMILES          Kind = "smiles"
	KindUnknown         Kind = "unknown"
	KindExternal        Kind = "external"
	KindInvalid         Kind = "invalid"
)

// IonType is the ion position of an annotation. Exactly one concrete
// variant backs every parsed annotation.
type IonType interface {
	// Kind reports which variant this is.
	Kind() Kind
	// String renders the ion in wire form, without the envelope.
	String() string
}

// PeptideFragment is a backbone fragment ion: a series letter and the
// ordinal of the cleaved position (y3, b14).
type PeptideFragment struct {
	Series   string
	Position int
}

// Kind implements IonType.
func (p PeptideFragment) Kind() Kind { return KindPeptideFragment }

// String implements IonType.
func (p PeptideFragment) String() string { return p.Series + strconv.Itoa(p.Position) }

// Internal is an internal fragment ion spanning residues Start..End
// (1-based, inclusive) of the analyte sequence.
type Internal struct {
	Start int
	End   int
}

// Kind implements IonType.
func (i Internal) Kind() Kind { return KindInternal }

// String implements IonType.
func (i Internal) String() string {
	return "m" + strconv.Itoa(i.Start) + ":" + strconv.Itoa(i.End)
}

// Precursor is the intact precursor ion.
type Precursor struct{}

// Kind implements IonType.
func (Precursor) Kind() Kind { return KindPrecursor }

// String implements IonType.
func (Precursor) String() string { return "p" }

// Immonium is an immonium ion of a single amino acid, optionally carrying a
// named modification.
type Immonium struct {
	AminoAcid    string
	Modification string
}

// Kind implements IonType.
func (i Immonium) Kind() Kind { return KindImmonium }

// String implements IonType.
func (i Immonium) String() string {
	if i.Modification != "" {
		return "I" + i.AminoAcid + "[" + i.Modification + "]"
	}
	return "I" + i.AminoAcid
}

// Reporter is a labeling-reagent reporter ion (r[TMT127N]).
type Reporter struct {
	Label string
}

// Kind implements IonType.
func (r Reporter) Kind() Kind { return KindReporter }

// String implements IonType.
func (r Reporter) String() string { return "r[" + r.Label + "]" }

// Formula is an ion described only by its molecular formula (f{C13H9}).
type Formula struct {
	Formula string
}

// Kind implements IonType.
func (f Formula) Kind() Kind { return KindFormula }

// String implements IonType.
func (f Formula) String() string { return "f{" + f.Formula + "}" }

// SMILES is an ion described by a SMILES structure string.
type SMILES struct {
	SMILES string
}

// Kind implements IonType.
func (s SMILES) Kind() Kind { return KindSMILES }

// String implements IonType.
func (s SMILES) String() string { return "s{" + s.SMILES + "}" }

// Unknown is an ion of unknown identity carrying a numeric label so that
// the same unknown can be referenced across spectra (?17).
type Unknown struct {
	Label string
}

// Kind implements IonType.
func (u Unknown) Kind() Kind { return KindUnknown }

// String implements IonType.
func (u Unknown) String() string { return "?" + u.Label }

// External is an ion named by an external convention this language does
// not model (_frag).
type External struct {
	Label string
}

// Kind implements IonType.
func (e External) Kind() Kind { return KindExternal }

// String implements IonType.
func (e External) String() string { return "_" + e.Label }

// Invalid preserves annotation text that failed to parse. Backends that
// tolerate bad annotations store the raw content instead of dropping it.
type Invalid struct {
	Content string
}

// Kind implements IonType.
func (i Invalid) Kind() Kind { return KindInvalid }

// String implements IonType.
func (i Invalid) String() string { return i.Content }

package attribute

import (
	"strconv"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an unset value.
	KindInvalid Kind = iota
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindTerm represents a CV term used as a value.
	KindTerm
)

// Value is a small typed attribute value.
//
// Values parsed from a library file keep the raw text they were read from,
// so numbers re-serialize byte-identically ("44.0" stays "44.0" even though
// it parses to the float 44).
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	S    string
	B    bool
	T    Term

	raw string
}

// Int returns an integer Value.
func Int(i int64) Value { return Value{Kind: KindInt, I64: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// TermValue returns a Value holding a CV term.
func TermValue(t Term) Value { return Value{Kind: KindTerm, T: t} }

// ParseValue converts raw attribute text into a typed Value: int, then
// float, then CV term, then plain string. The raw text is preserved.
func ParseValue(s string) Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Value{Kind: KindInt, I64: i, raw: s}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Value{Kind: KindFloat, F64: f, raw: s}
	}
	if looksLikeTerm(s) {
		return Value{Kind: KindTerm, T: ParseTerm(s), raw: s}
	}
	return Value{Kind: KindString, S: s, raw: s}
}

// String renders the value in wire form. Parsed values reproduce their
// original text.
func (v Value) String() string {
	if v.raw != "" {
		return v.raw
	}
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return v.S
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindTerm:
		return v.T.String()
	default:
		return ""
	}
}

// AsInt64 returns the value as an int64 when it is numeric.
func (v Value) AsInt64() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.I64, true
	case KindFloat:
		return int64(v.F64), true
	default:
		return 0, false
	}
}

// AsFloat64 returns the value as a float64 when it is numeric.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I64), true
	case KindFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// AsTerm returns the CV term when the value holds one.
func (v Value) AsTerm() (Term, bool) {
	if v.Kind == KindTerm {
		return v.T, true
	}
	return Term{}, false
}

// Equal compares two values by content. Numeric values compare across
// kinds, so the int 44 equals the float 44.0; raw spellings are ignored.
func (v Value) Equal(o Value) bool {
	if vf, ok := v.AsFloat64(); ok {
		of, ook := o.AsFloat64()
		return ook && vf == of
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.S == o.S
	case KindBool:
		return v.B == o.B
	case KindTerm:
		return v.T == o.T
	default:
		return true
	}
}

// Key returns a stable representation for use as a map key in inverted
// indexes. Numeric values of equal magnitude share a key.
func (v Value) Key() string {
	switch v.Kind {
	case KindInt:
		return "n:" + strconv.FormatFloat(float64(v.I64), 'g', -1, 64)
	case KindFloat:
		return "n:" + strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return "s:" + v.S
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindTerm:
		return "t:" + v.T.String()
	default:
		return "invalid"
	}
}

package annotation

import (
	"fmt"
	"strconv"
	"strings"
)

// confidenceSumSlack absorbs float rounding in confidence sums written by
// other tools; sums up to 1+confidenceSumSlack pass validation.
const confidenceSumSlack = 1e-3

// Parse parses a comma-separated annotation list in the Canonical dialect.
// An empty string or a bare "?" yields an empty list and no error.
func Parse(s string) ([]Annotation, error) {
	return ParseWith(Canonical, s)
}

// ParseWith parses a comma-separated annotation list in the given dialect.
func ParseWith(d *Dialect, s string) ([]Annotation, error) {
	if d == nil {
		d = Canonical
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "?" {
		return nil, nil
	}

	p := &parser{input: trimmed, dialect: d}
	var out []Annotation
	for {
		a, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		if p.eof() {
			break
		}
		if p.peek() != ',' {
			return nil, p.errorf("trailing content %q", p.rest())
		}
		p.pos++
	}

	var sum float64
	seen := false
	for _, a := range out {
		if a.Confidence != nil {
			sum += *a.Confidence
			seen = true
		}
	}
	if seen && sum > 1+confidenceSumSlack {
		return nil, fmt.Errorf("%w: %q sums to %g", ErrConfidenceSum, trimmed, sum)
	}
	return out, nil
}

type parser struct {
	input   string
	dialect *Dialect
	pos     int
}

func (p *parser) eof() bool { return p.pos >= len(p.input) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) peekAt(n int) byte {
	if p.pos+n >= len(p.input) {
		return 0
	}
	return p.input[p.pos+n]
}

func (p *parser) rest() string { return p.input[p.pos:] }

func (p *parser) errorf(format string, args ...any) error {
	return &ErrInvalidAnnotation{
		Content:  p.input,
		Position: p.pos,
		Reason:   fmt.Sprintf(format, args...),
	}
}

func (p *parser) parseOne() (Annotation, error) {
	var a Annotation
	// Ion types never begin with '[', so a bracket here is the auxiliary
	// wrapper around the whole annotation.
	if p.peek() == '[' {
		a.Auxiliary = true
		p.pos++
		if err := p.parseBody(&a); err != nil {
			return a, err
		}
		if p.eof() || p.peek() != ']' {
			return a, &ErrMalformedAuxiliary{Content: p.input}
		}
		p.pos++
		return a, nil
	}
	err := p.parseBody(&a)
	return a, err
}

func (p *parser) parseBody(a *Annotation) error {
	a.AnalyteRef = p.tryAnalyteRef()

	ion, err := p.parseIon()
	if err != nil {
		return err
	}
	a.Ion = ion

	if err := p.parseNeutralLosses(a); err != nil {
		return err
	}
	if err := p.parseIsotope(a); err != nil {
		return err
	}
	if err := p.parseCharge(a); err != nil {
		return err
	}
	if err := p.parseAdducts(a); err != nil {
		return err
	}
	if err := p.parseMassError(a); err != nil {
		return err
	}
	return p.parseConfidence(a)
}

func (p *parser) tryAnalyteRef() string {
	i := p.pos
	for i < len(p.input) && isDigit(p.input[i]) {
		i++
	}
	if i > p.pos && i < len(p.input) && p.input[i] == '@' {
		ref := p.input[p.pos:i]
		p.pos = i + 1
		return ref
	}
	return ""
}

// parseIon dispatches on the leading character. Alternatives are tried in
// a fixed order; the series-letter check wins over same-letter ion kinds.
func (p *parser) parseIon() (IonType, error) {
	if p.eof() {
		return nil, p.errorf("missing ion")
	}
	c := p.peek()
	switch {
	case p.dialect.isSeries(c) && p.seriesOrdinalAhead():
		return p.parsePeptideFragment()
	case c == 'm' && p.internalAhead():
		return p.parseInternal()
	case c == 'p':
		p.pos++
		return Precursor{}, nil
	case c == 'I':
		return p.parseImmonium()
	case c == 'r' && p.peekAt(1) == '[':
		p.pos++
		label, err := p.bracketInner()
		if err != nil {
			return nil, err
		}
		return Reporter{Label: label}, nil
	case c == 'f' && p.peekAt(1) == '{':
		p.pos++
		formula, err := p.braceInner()
		if err != nil {
			return nil, err
		}
		return Formula{Formula: formula}, nil
	case c == 's' && p.peekAt(1) == '{':
		p.pos++
		smiles, err := p.braceInner()
		if err != nil {
			return nil, err
		}
		return SMILES{SMILES: smiles}, nil
	case c == '?':
		return p.parseUnknown()
	case c == '_':
		return p.parseExternal()
	}
	return nil, p.errorf("unrecognized ion %q", p.rest())
}

func (p *parser) seriesOrdinalAhead() bool {
	i := p.pos + 1
	if p.dialect.AllowSeriesDot && i < len(p.input) && p.input[i] == '.' {
		i++
	}
	return i < len(p.input) && isDigit(p.input[i])
}

func (p *parser) parsePeptideFragment() (IonType, error) {
	series := string(p.peek())
	p.pos++
	if p.dialect.AllowSeriesDot && p.peek() == '.' {
		p.pos++
	}
	n, err := p.digits()
	if err != nil {
		return nil, err
	}
	return PeptideFragment{Series: series, Position: n}, nil
}

func (p *parser) internalAhead() bool {
	i := p.pos + 1
	start := i
	for i < len(p.input) && isDigit(p.input[i]) {
		i++
	}
	if i == start || i >= len(p.input) || p.input[i] != ':' {
		return false
	}
	return i+1 < len(p.input) && isDigit(p.input[i+1])
}

func (p *parser) parseInternal() (IonType, error) {
	p.pos++ // 'm'
	start, err := p.digits()
	if err != nil {
		return nil, err
	}
	p.pos++ // ':'
	end, err := p.digits()
	if err != nil {
		return nil, err
	}
	return Internal{Start: start, End: end}, nil
}

func (p *parser) parseImmonium() (IonType, error) {
	p.pos++ // 'I'
	c := p.peek()
	if c < 'A' || c > 'Z' {
		return nil, p.errorf("immonium ion needs an amino acid letter")
	}
	p.pos++
	var mod string
	if p.peek() == '[' {
		inner, err := p.bracketInner()
		if err != nil {
			return nil, err
		}
		mod = inner
	}
	return Immonium{AminoAcid: string(c), Modification: mod}, nil
}

func (p *parser) parseUnknown() (IonType, error) {
	p.pos++ // '?'
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return nil, p.errorf("unknown ion needs an ordinal")
	}
	return Unknown{Label: p.input[start:p.pos]}, nil
}

// parseExternal consumes the label up to the next delimiter. The stop set
// includes the envelope openers so that wrapped forms like [_foo] keep
// their label clean.
func (p *parser) parseExternal() (IonType, error) {
	p.pos++ // '_'
	start := p.pos
	for !p.eof() && !isExternalStop(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return nil, p.errorf("external ion needs a label")
	}
	return External{Label: p.input[start:p.pos]}, nil
}

func isExternalStop(c byte) bool {
	switch c {
	case ' ', '\t', ',', '/', ']', '^', '*':
		return true
	}
	return false
}

func (p *parser) parseNeutralLosses(a *Annotation) error {
	for !p.eof() {
		c := p.peek()
		if c != '+' && c != '-' {
			return nil
		}
		if p.isotopeAhead(p.pos) {
			return nil
		}
		p.pos++
		var tok string
		if p.peek() == '[' {
			raw, err := p.bracketRaw()
			if err != nil {
				return err
			}
			tok = raw
		} else {
			formula, err := p.formulaToken()
			if err != nil {
				return err
			}
			tok = formula
		}
		if c == '-' {
			tok = "-" + tok
		}
		a.NeutralLosses = append(a.NeutralLosses, tok)
	}
	return nil
}

// isotopeAhead distinguishes "+2i" from a neutral loss: element symbols
// start uppercase, so a lowercase 'i' after the optional digits can only
// open an isotope clause.
func (p *parser) isotopeAhead(at int) bool {
	i := at + 1
	for i < len(p.input) && isDigit(p.input[i]) {
		i++
	}
	return i < len(p.input) && p.input[i] == 'i'
}

func (p *parser) parseIsotope(a *Annotation) error {
	if p.eof() {
		return nil
	}
	c := p.peek()
	if c == '+' || c == '-' {
		if !p.isotopeAhead(p.pos) {
			return nil
		}
		p.pos++
		n := 1
		if isDigit(p.peek()) {
			v, err := p.digits()
			if err != nil {
				return err
			}
			n = v
		}
		if p.peek() != 'i' {
			return p.errorf("malformed isotope")
		}
		p.pos++
		if c == '-' {
			n = -n
		}
		a.Isotope = n
		return nil
	}
	if p.dialect.BareIsotope {
		i := p.pos
		for i < len(p.input) && isDigit(p.input[i]) {
			i++
		}
		if i < len(p.input) && p.input[i] == 'i' {
			n := 1
			if i > p.pos {
				v, err := strconv.Atoi(p.input[p.pos:i])
				if err != nil {
					return p.errorf("malformed isotope")
				}
				n = v
			}
			p.pos = i + 1
			a.Isotope = n
		}
	}
	return nil
}

func (p *parser) parseCharge(a *Annotation) error {
	if p.peek() != '^' {
		return nil
	}
	p.pos++
	sign := 1
	switch p.peek() {
	case '-':
		sign = -1
		p.pos++
	case '+':
		p.pos++
	}
	n, err := p.digits()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrZeroCharge, p.input)
	}
	a.Charge = sign * n
	return nil
}

func (p *parser) parseAdducts(a *Annotation) error {
	if p.peek() != '[' {
		return nil
	}
	p.pos++
	if p.peek() != 'M' {
		return p.errorf("adduct group must start with M")
	}
	p.pos++
	a.Adducts = append(a.Adducts, "M")
	for {
		c := p.peek()
		if c == ']' {
			p.pos++
			return nil
		}
		if c != '+' && c != '-' {
			return p.errorf("malformed adduct group")
		}
		p.pos++
		tok, err := p.formulaToken()
		if err != nil {
			return err
		}
		if c == '-' {
			tok = "-" + tok
		}
		a.Adducts = append(a.Adducts, tok)
	}
}

func (p *parser) parseMassError(a *Annotation) error {
	if p.peek() != '/' {
		return nil
	}
	p.pos++
	v, err := p.number()
	if err != nil {
		return err
	}
	unit := "Da"
	if strings.HasPrefix(p.rest(), "ppm") {
		p.pos += 3
		unit = "ppm"
	}
	a.MassError = &MassError{Value: v, Unit: unit}
	return nil
}

func (p *parser) parseConfidence(a *Annotation) error {
	if p.peek() != '*' {
		return nil
	}
	p.pos++
	v, err := p.number()
	if err != nil {
		return err
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %g in %q", ErrConfidenceOutOfRange, v, p.input)
	}
	a.Confidence = &v
	return nil
}

func (p *parser) digits() (int, error) {
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf("expected digits")
	}
	n, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil {
		return 0, p.errorf("number out of range")
	}
	return n, nil
}

func (p *parser) number() (float64, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.peek() == '.' {
		p.pos++
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
	}
	if p.pos == start {
		return 0, p.errorf("expected a number")
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("malformed number %q", p.input[start:p.pos])
	}
	return v, nil
}

// formulaToken consumes a molecular formula token: an optional count prefix
// followed by element symbols and counts.
func (p *parser) formulaToken() (string, error) {
	start := p.pos
	for !p.eof() && isAlnum(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected a formula")
	}
	return p.input[start:p.pos], nil
}

// bracketRaw consumes a bracketed token, brackets included. One level of
// nesting is allowed for compound names that themselves carry brackets.
func (p *parser) bracketRaw() (string, error) {
	start := p.pos
	depth := 0
	for i := p.pos; i < len(p.input); i++ {
		switch p.input[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				p.pos = i + 1
				return p.input[start : i+1], nil
			}
		}
	}
	return "", p.errorf("unterminated bracket")
}

// bracketInner consumes a bracketed token and returns its content.
func (p *parser) bracketInner() (string, error) {
	if p.peek() != '[' {
		return "", p.errorf("expected '['")
	}
	p.pos++
	start := p.pos
	for !p.eof() && p.peek() != ']' {
		p.pos++
	}
	if p.eof() {
		return "", p.errorf("unterminated bracket")
	}
	inner := p.input[start:p.pos]
	p.pos++
	return inner, nil
}

// braceInner consumes a braced token and returns its content.
func (p *parser) braceInner() (string, error) {
	if p.peek() != '{' {
		return "", p.errorf("expected '{'")
	}
	p.pos++
	start := p.pos
	for !p.eof() && p.peek() != '}' {
		p.pos++
	}
	if p.eof() {
		return "", p.errorf("unterminated brace")
	}
	inner := p.input[start:p.pos]
	p.pos++
	return inner, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

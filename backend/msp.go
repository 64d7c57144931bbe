package backend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/speclib/annotation"
	"github.com/hupe1980/speclib/attribute"
	"github.com/hupe1980/speclib/index"
	"github.com/hupe1980/speclib/model"
)

// FormatMSP is the registry name of the NIST MSP format.
const FormatMSP = "msp"

func init() {
	Register(&Format{
		Name:       FormatMSP,
		Extensions: []string{".msp"},
		Open: func(ctx context.Context, src *ByteSource, opts *OpenOptions) (Library, error) {
			return openMSP(ctx, src, opts, FormatMSP, annotation.MSP)
		},
		Sniff: func(_ context.Context, r io.Reader) bool {
			return sniffMSP(r, false)
		},
	})
}

// sniffMSP reports whether the stream opens with a "Name:" record,
// optionally skipping the "###" banner lines SpectraST writes.
func sniffMSP(r io.Reader, allowBanner bool) bool {
	br := bufio.NewReader(r)

	for i := 0; i < 1000; i++ {
		line, err := br.ReadString('\n')
		if line == "" && err != nil {
			return false
		}

		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
		case allowBanner && strings.HasPrefix(trimmed, "###"):
		case strings.HasPrefix(trimmed, "#"):
		default:
			return strings.HasPrefix(trimmed, "Name:")
		}

		if err != nil {
			return false
		}
	}

	return false
}

var mspScanRules = scanRules{
	IsRecordStart: func(line string) bool {
		return strings.HasPrefix(line, "Name:")
	},
	Name: func(line string) (string, bool) {
		if rest, ok := strings.CutPrefix(line, "Name:"); ok {
			return strings.TrimSpace(rest), true
		}

		return "", false
	},
}

// MSPLibrary reads NIST MSP libraries and, through the SPTXT dialect,
// SpectraST SPTXT libraries. Records start at "Name:" lines; the header
// key/value block ends at "Num peaks", after which the peak table follows.
type MSPLibrary struct {
	src     *ByteSource
	sc      *scanner
	idx     index.Index
	header  *Header
	format  string
	dialect *annotation.Dialect
	count   int
	cursor  uint64
}

var (
	_ Library = (*MSPLibrary)(nil)
	_ Indexed = (*MSPLibrary)(nil)
)

func openMSP(ctx context.Context, src *ByteSource, opts *OpenOptions, format string, dialect *annotation.Dialect) (Library, error) {
	lib := &MSPLibrary{
		src:     src,
		sc:      newScanner(src, mspScanRules, opts.Logger),
		format:  format,
		dialect: dialect,
	}

	lib.header = NewHeader()
	lib.header.Attributes.Add(TermFormatVersion, attribute.String(DefaultFormatVersion))
	lib.header.Attributes.Add(TermLibraryName, attribute.String(src.Name()))

	idx, existed, err := openScanIndex(src, opts.IndexMode)
	if err != nil {
		return nil, err
	}

	lib.idx = idx

	if existed {
		lib.count, err = idx.Count()
	} else {
		lib.count, err = lib.sc.buildIndex(ctx, idx)
	}

	if err != nil {
		_ = idx.Close()

		return nil, err
	}

	return lib, nil
}

// Format implements Library.
func (m *MSPLibrary) Format() string { return m.format }

// Header implements Library.
func (m *MSPLibrary) Header() *Header { return m.header }

// Index implements Indexed.
func (m *MSPLibrary) Index() index.Index { return m.idx }

// Count implements Library.
func (m *MSPLibrary) Count() (int, error) { return m.count, nil }

// Spectrum implements Library.
func (m *MSPLibrary) Spectrum(ctx context.Context, number uint64) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := m.idx.Get(number)
	if err != nil {
		return nil, err
	}

	return m.spectrumAt(rec)
}

// SpectrumByName implements Library.
func (m *MSPLibrary) SpectrumByName(ctx context.Context, name string) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := m.idx.SearchOne(name)
	if err != nil {
		return nil, err
	}

	return m.spectrumAt(rec)
}

// Read implements Library.
func (m *MSPLibrary) Read(ctx context.Context) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.cursor >= uint64(m.count) { //nolint:gosec // count is never negative
		return nil, io.EOF
	}

	s, err := m.Spectrum(ctx, m.cursor)
	if err != nil {
		return nil, err
	}

	m.cursor++

	return s, nil
}

func (m *MSPLibrary) spectrumAt(rec index.Record) (*model.Spectrum, error) {
	lines, err := m.sc.linesFor(rec.Offset)
	if err != nil {
		return nil, err
	}

	return parseMSPSpectrum(lines, rec.Number, m.dialect)
}

// Close implements Library.
func (m *MSPLibrary) Close() error {
	err := m.idx.Close()

	if cerr := m.src.Close(); err == nil {
		err = cerr
	}

	return err
}

func mustTerm(s string) attribute.Term { return attribute.ParseTerm(s) }

// attrPair is one fixed key/value emission of a term-mapping rule.
type attrPair struct {
	Key   attribute.Term
	Value attribute.Value
}

func pair(key, value string) attrPair {
	return attrPair{Key: mustTerm(key), Value: attribute.ParseValue(value)}
}

// termRule translates one vendor MSP key. Exactly one field is set: Term
// substitutes the key and keeps the value, Emit writes fixed attributes for
// a valueless key, ByValue maps each allowed value to its emissions.
type termRule struct {
	Term    attribute.Term
	Emit    []attrPair
	ByValue map[string][]attrPair
}

// mspLeaderTerms are required at the head of every record.
var mspLeaderTerms = map[string]attribute.Term{
	"Name": model.TermSpectrumName,
}

// mspOtherTerms translates the bulk of the known vendor keys.
var mspOtherTerms = map[string]termRule{
	"MW":                  {Term: mustTerm("MS:1000224|molecular mass")},
	"ExactMass":           {Term: mustTerm("MS:1000224|molecular mass")},
	"Charge":              {Term: mustTerm("MS:1000041|charge state")},
	"Parent":              {Term: mustTerm("MS:1000744|selected ion m/z")},
	"ObservedPrecursorMZ": {Term: mustTerm("MS:1000744|selected ion m/z")},
	"PrecursorMonoisoMZ":  {Term: mustTerm("MS:1003053|theoretical monoisotopic m/z")},
	"Mz_exact":            {Term: mustTerm("MS:1003053|theoretical monoisotopic m/z")},
	"Mz_av":               {Term: mustTerm("MS:1003054|theoretical average m/z")},
	"Scan":                {Term: mustTerm("MS:1003057|scan number")},
	"Origfile":            {Term: mustTerm("MS:1009008|source file")},
	"Sample":              {Term: mustTerm("MS:1000002|sample name")},
	"Filter":              {Term: mustTerm("MS:1000512|filter string")},
	"FTResolution":        {Term: mustTerm("MS:1000028|detector resolution")},
	"Protein":             {Term: mustTerm("MS:1000885|protein accession")},
	"ms1PrecursorAb":      {Term: mustTerm("MS:1009010|previous MS1 scan precursor intensity")},
	"Precursor1MaxAb":     {Term: mustTerm("MS:1009011|precursor apex intensity")},
	"Purity":              {Term: mustTerm("MS:1009013|isolation window precursor purity")},
	"Unassigned":          {Term: mustTerm("MS:1003080|top 20 peak unassigned intensity fraction")},
	"Unassign_all":        {Term: mustTerm("MS:1003079|total unassigned intensity fraction")},
	"Mods":                {Term: mustTerm("MS:1001471|peptide modification details")},
	"BasePeak":            {Term: mustTerm("MS:1000505|base peak intensity")},
	"Naa":                 {Term: mustTerm("MS:1003043|number of residues")},
	"Num peaks":           {Term: model.TermNumberOfPeaks},
	"TotalIonCurrent":     {Term: mustTerm("MS:1000285|total ion current")},

	"Single": {Emit: []attrPair{
		{Key: model.TermAggregationType, Value: attribute.TermValue(model.TermSingletonSpectrum)},
	}},
	"Consensus": {Emit: []attrPair{
		{Key: model.TermAggregationType, Value: attribute.TermValue(model.TermConsensusSpectrum)},
	}},

	"Inst": {ByValue: map[string][]attrPair{
		"it":  {pair("MS:1000044|dissociation method", "MS:1002472|trap-type collision-induced dissociation")},
		"hcd": {pair("MS:1000044|dissociation method", "MS:1000422|beam-type collision-induced dissociation")},
	}},
	"Spec": {ByValue: map[string][]attrPair{
		"Consensus": {{Key: model.TermAggregationType, Value: attribute.TermValue(model.TermConsensusSpectrum)}},
	}},
	"Pep": {ByValue: map[string][]attrPair{
		"Tryptic": {
			pair("MS:1003048|number of enzymatic termini", "2"),
			pair("MS:1001045|cleavage agent name", "MS:1001251|Trypsin"),
		},
		"N-Semitryptic": {
			pair("MS:1003048|number of enzymatic termini", "1"),
			pair("MS:1001045|cleavage agent name", "MS:1001251|Trypsin"),
		},
		"C-Semitryptic": {
			pair("MS:1003048|number of enzymatic termini", "1"),
			pair("MS:1001045|cleavage agent name", "MS:1001251|Trypsin"),
		},
		"Tryptic/miss_good_confirmed": {
			pair("MS:1003048|number of enzymatic termini", "2"),
			pair("MS:1003044|number of missed cleavages", "0"),
			pair("MS:1001045|cleavage agent name", "MS:1001251|Trypsin"),
		},
		"Tryptic/miss_bad_confirmed": {
			pair("MS:1003048|number of enzymatic termini", "2"),
			pair("MS:1003044|number of missed cleavages", ">0"),
			pair("MS:1001045|cleavage agent name", "MS:1001251|Trypsin"),
		},
	}},
}

// mspSpeciesMap expands the Organism key into the taxonomy group.
var mspSpeciesMap = map[string][]attrPair{
	"human": {
		pair("MS:1001467|taxonomy: NCBI TaxID", "NCBITaxon:9606|Homo sapiens"),
		pair("MS:1001469|taxonomy: scientific name", "Homo sapiens"),
		pair("MS:1001468|taxonomy: common name", "human"),
	},
	"zebrafish": {
		pair("MS:1001467|taxonomy: NCBI TaxID", "NCBITaxon:7955|Danio rerio"),
		pair("MS:1001469|taxonomy: scientific name", "Danio rerio"),
		pair("MS:1001468|taxonomy: common name", "zebra fish"),
	},
	"chicken": {
		pair("MS:1001467|taxonomy: NCBI TaxID", "NCBITaxon:9031|Gallus gallus"),
		pair("MS:1001469|taxonomy: scientific name", "Gallus gallus"),
		pair("MS:1001468|taxonomy: common name", "chicken"),
	},
}

// Terms used by the special-cased vendor keys.
var (
	termDissociationMethod = mustTerm("MS:1000044|dissociation method")
	termCollisionEnergy    = mustTerm("MS:1000045|collision energy")
	termRetentionTime      = mustTerm("MS:1000894|retention time")
	termUnit               = mustTerm("UO:0000000|unit")
	termIsolationLower     = mustTerm("MS:1000828|isolation window lower offset")
	termIsolationUpper     = mustTerm("MS:1000829|isolation window upper offset")
	termDeltaMZ            = mustTerm("MS:1001975|delta m/z")
	termFlankN             = mustTerm("MS:1001112|n-terminal flanking residue")
	termFlankC             = mustTerm("MS:1001113|c-terminal flanking residue")
	termRepsUsed           = mustTerm("MS:1003070|number of replicate spectra used")
	termRepsAvailable      = mustTerm("MS:1003069|number of replicate spectra available")
	termOtherAttrName      = mustTerm("MS:1009900|other attribute name")
	termOtherAttrValue     = mustTerm("MS:1009902|other attribute value")

	unitElectronvolt = attribute.ParseValue("UO:0000266|electronvolt")
	unitPercent      = attribute.ParseValue("UO:0000187|percent")
	unitSecond       = attribute.ParseValue("UO:0000010|second")
	unitMinute       = attribute.ParseValue("UO:0000031|minute")
	unitPPM          = attribute.ParseValue("UO:0000169|parts per million")
	unitMZ           = attribute.ParseValue("MS:1000040|m/z")
)

var (
	reNumber   = regexp.MustCompile(`^([\d.]+)`)
	reEV       = regexp.MustCompile(`(?i)^([\d.]+)\s*ev`)
	rePercent  = regexp.MustCompile(`^([\d.]+)\s*%`)
	reRT       = regexp.MustCompile(`^([\d.]+)\s*(\D*)$`)
	rePPM      = regexp.MustCompile(`(?i)^([-+e\d.]+)\s*ppm`)
	reSigned   = regexp.MustCompile(`^([-+e\d.]+)`)
	reFullname = regexp.MustCompile(`^([A-Z\-*])\.([A-Z]+)\.([A-Z\-*])/*(\d*)$`)
	reNreps    = regexp.MustCompile(`^(\d+)(?:/(\d+))?$`)
	reNameSeq  = regexp.MustCompile(`^(.+)/(\d+)`)
)

// mspField is one raw "key: value" pair pulled from a record header,
// kept in file order.
type mspField struct {
	Key   string
	Value string
}

// parseMSPSpectrum converts one buffered MSP record into a Spectrum:
// header fields are translated through the term tables, the Comment block
// is exploded into individual fields first, and the peak rows follow the
// "Num peaks" line.
func parseMSPSpectrum(lines []string, number uint64, dialect *annotation.Dialect) (*model.Spectrum, error) {
	fields, peakLines, err := splitMSPRecord(lines, number)
	if err != nil {
		return nil, err
	}

	s := model.NewSpectrum()
	s.Key = number + 1

	analyte := model.NewAnalyte("1")

	translateMSPFields(s, analyte, fields)

	if _, ok := analyte.StrippedPeptide(); !ok {
		// NIST names encode "sequence/charge"; fall back on it when no
		// Fullname field supplied the peptide.
		if match := reNameSeq.FindStringSubmatch(s.Name()); match != nil {
			analyte.Attributes.Add(model.TermStrippedPeptide, attribute.String(match[1]))
			if !s.Attributes.Has(mustTerm("MS:1000041|charge state")) {
				s.Attributes.Add(mustTerm("MS:1000041|charge state"), attribute.ParseValue(match[2]))
			}
		}
	}

	s.AddAnalyte(analyte)
	s.AddInterpretation(model.NewInterpretation("1"))

	seq, _ := analyte.StrippedPeptide()

	for _, line := range peakLines {
		peak, err := parseMSPPeak(line, dialect, seq)
		if err != nil {
			return nil, err
		}

		s.Peaks = append(s.Peaks, peak)
	}

	s.SetIndex(int64(number)) //nolint:gosec // ordinals stay far below 2^63
	s.BackfillInterpretations()

	return s, nil
}

// splitMSPRecord separates a record's header fields from its peak rows.
// The header ends at the "Num peaks" field; Comment blocks are expanded
// in place.
func splitMSPRecord(lines []string, number uint64) ([]mspField, []string, error) {
	var (
		fields    []mspField
		peakLines []string
	)

	inHeader := true

	for lineNo, line := range lines {
		if !inHeader {
			peakLines = append(peakLines, line)

			continue
		}

		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		var key, value string

		switch {
		case strings.Contains(line, ":"):
			parts := strings.SplitN(line, ":", 2)
			key, value = parts[0], strings.TrimLeft(parts[1], " \t")
		case strings.Contains(line, "="):
			parts := strings.SplitN(line, "=", 2)
			key, value = parts[0], strings.TrimLeft(parts[1], " \t")
		case strings.Contains(line, "\t"):
			return nil, nil, &ErrMalformedAttributeLine{Line: line, LineNo: lineNo + 1, Record: number}
		default:
			key = line
		}

		if key == "Comment" {
			fields = append(fields, splitMSPComment(value)...)

			continue
		}

		fields = append(fields, mspField{Key: key, Value: value})

		if key == "Num peaks" || key == "NumPeaks" {
			inHeader = false
		}
	}

	return fields, peakLines, nil
}

// splitMSPComment splits a Comment value on spaces, re-joining tokens whose
// quotes would otherwise be torn apart, then breaks each item on its first
// '='.
func splitMSPComment(value string) []mspField {
	var items []string

	current := ""

	for _, tok := range strings.Split(value, " ") {
		if current != "" {
			current += " "
		}

		current += tok

		if strings.Count(current, `"`)%2 == 0 {
			items = append(items, current)
			current = ""
		}
	}

	if current != "" {
		items = append(items, current)
	}

	fields := make([]mspField, 0, len(items))

	for _, item := range items {
		if item == "" {
			continue
		}

		key, val, found := strings.Cut(item, "=")
		if !found {
			fields = append(fields, mspField{Key: item})
		} else {
			fields = append(fields, mspField{Key: key, Value: val})
		}
	}

	return fields
}

// translateMSPFields maps raw vendor fields onto CURIE attributes using the
// term tables and the special-case handlers. Unknown keys are preserved as
// other-attribute name/value groups.
func translateMSPFields(s *model.Spectrum, analyte *model.Analyte, fields []mspField) {
	var unknown []mspField

	for _, f := range fields {
		if leader, ok := mspLeaderTerms[f.Key]; ok {
			s.Attributes.Add(leader, attribute.ParseValue(f.Value))

			continue
		}

		if rule, ok := mspOtherTerms[f.Key]; ok {
			if !applyTermRule(s, f, rule) {
				unknown = append(unknown, f)
			}

			continue
		}

		if !translateSpecialField(s, analyte, f) {
			unknown = append(unknown, f)
		}
	}

	for _, f := range unknown {
		if f.Value == "" {
			s.Attributes.Add(termOtherAttrName, attribute.String(f.Key))

			continue
		}

		group := s.Attributes.NextGroup()
		s.Attributes.AddGrouped(termOtherAttrName, attribute.String(f.Key), group)
		s.Attributes.AddGrouped(termOtherAttrValue, attribute.ParseValue(f.Value), group)
	}
}

func applyTermRule(s *model.Spectrum, f mspField, rule termRule) bool {
	switch {
	case rule.ByValue != nil:
		pairs, ok := rule.ByValue[f.Value]
		if !ok {
			return false
		}

		emitPairs(s.Attributes, pairs)

	case rule.Emit != nil:
		emitPairs(s.Attributes, rule.Emit)

	default:
		if f.Value == "" {
			return false
		}

		s.Attributes.Add(rule.Term, attribute.ParseValue(f.Value))
	}

	return true
}

// emitPairs writes the pairs, sharing one group when there is more than
// one.
func emitPairs(m *attribute.Manager, pairs []attrPair) {
	if len(pairs) == 1 {
		m.Add(pairs[0].Key, pairs[0].Value)

		return
	}

	group := m.NextGroup()
	for _, p := range pairs {
		m.AddGrouped(p.Key, p.Value, group)
	}
}

// translateSpecialField handles the vendor keys whose values need parsing
// beyond a table lookup. Returns false when the key is not special or its
// value cannot be parsed.
func translateSpecialField(s *model.Spectrum, analyte *model.Analyte, f mspField) bool {
	attrs := s.Attributes

	switch f.Key {
	case "HCD":
		attrs.Add(termDissociationMethod, attribute.ParseValue("MS:1000422|beam-type collision-induced dissociation"))

		if match := reEV.FindStringSubmatch(f.Value); match != nil {
			addWithUnit(attrs, termCollisionEnergy, match[1], unitElectronvolt)

			return true
		}

		if match := rePercent.FindStringSubmatch(f.Value); match != nil {
			addWithUnit(attrs, termCollisionEnergy, match[1], unitPercent)

			return true
		}

		return false

	case "Collision_energy":
		match := reNumber.FindStringSubmatch(f.Value)
		if match == nil {
			return false
		}

		addWithUnit(attrs, termCollisionEnergy, match[1], unitElectronvolt)

		return true

	case "RT":
		match := reRT.FindStringSubmatch(f.Value)
		if match == nil || match[2] != "" {
			return false
		}

		// No unit in the file: assume minutes below 250, seconds above.
		unit := unitMinute
		if v, err := strconv.ParseFloat(match[1], 64); err == nil && v > 250 {
			unit = unitSecond
		}

		addWithUnit(attrs, termRetentionTime, match[1], unit)

		return true

	case "ms2IsolationWidth":
		width, err := strconv.ParseFloat(f.Value, 64)
		if err != nil {
			return false
		}

		half := strconv.FormatFloat(width/2, 'g', -1, 64)
		addWithUnit(attrs, termIsolationLower, half, unitMZ)
		addWithUnit(attrs, termIsolationUpper, half, unitMZ)

		return true

	case "Mz_diff":
		if match := rePPM.FindStringSubmatch(f.Value); match != nil {
			addWithUnit(attrs, termDeltaMZ, match[1], unitPPM)

			return true
		}

		if match := reSigned.FindStringSubmatch(f.Value); match != nil {
			addWithUnit(attrs, termDeltaMZ, match[1], unitMZ)

			return true
		}

		return false

	case "Dev_ppm":
		if f.Value == "" {
			return false
		}

		addWithUnit(attrs, termDeltaMZ, f.Value, unitPPM)

		return true

	case "Fullname":
		match := reFullname.FindStringSubmatch(f.Value)
		if match == nil {
			return false
		}

		analyte.Attributes.Add(model.TermStrippedPeptide, attribute.String(match[2]))
		attrs.Add(termFlankN, attribute.String(match[1]))
		attrs.Add(termFlankC, attribute.String(match[3]))

		if match[4] != "" {
			attrs.Add(mustTerm("MS:1000041|charge state"), attribute.ParseValue(match[4]))
		}

		return true

	case "Nrep", "Nreps":
		match := reNreps.FindStringSubmatch(f.Value)
		if match == nil {
			return false
		}

		used, available := match[1], match[2]
		if available == "" {
			available = used
		}

		attrs.Add(termRepsUsed, attribute.ParseValue(used))
		attrs.Add(termRepsAvailable, attribute.ParseValue(available))

		return true

	case "Organism":
		pairs, ok := mspSpeciesMap[strings.Trim(f.Value, `"`)]
		if !ok {
			return false
		}

		emitPairs(attrs, pairs)

		return true
	}

	return false
}

func addWithUnit(m *attribute.Manager, key attribute.Term, value string, unit attribute.Value) {
	group := m.NextGroup()
	m.AddGrouped(key, attribute.ParseValue(value), group)
	m.AddGrouped(termUnit, unit, group)
}

// parseMSPPeak parses one whitespace-separated peak row. The annotation
// column may be quoted; bad annotations degrade into Invalid markers. A
// fourth and later columns are kept as the aggregation field.
func parseMSPPeak(line string, dialect *annotation.Dialect, seq string) (model.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return model.Peak{}, &ErrMalformedPeakLine{Line: line}
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return model.Peak{}, &ErrMalformedPeakLine{Line: line}
	}

	intensity, err := strconv.ParseFloat(fields[1], 32)
	if err != nil {
		return model.Peak{}, &ErrMalformedPeakLine{Line: line}
	}

	peak := model.Peak{Mz: mz, Intensity: float32(intensity)}

	if len(fields) > 2 {
		raw := strings.Trim(fields[2], `"`)

		anns, err := annotation.ParseWith(dialect, resolveInternalSpans(raw, seq))
		if err != nil {
			anns = []annotation.Annotation{{Ion: annotation.Invalid{Content: raw}}}
		}

		peak.Annotations = anns
	}

	if len(fields) > 3 {
		peak.Aggregation = strings.Join(fields[3:], " ")
	}

	return peak, nil
}

// reInternalSeq matches the SpectraST internal-fragment spelling, which
// names the fragment by its residues rather than by positions.
var reInternalSeq = regexp.MustCompile(`Int/([A-Za-z]+)`)

// resolveInternalSpans rewrites "Int/SEQ" internal-fragment annotations
// into positional "m<start>:<end>" form by locating SEQ inside the
// analyte's peptide sequence. Fragments that cannot be located are left
// untouched and fail annotation parsing downstream.
func resolveInternalSpans(raw, seq string) string {
	if seq == "" || !strings.Contains(raw, "Int/") {
		return raw
	}

	return reInternalSeq.ReplaceAllStringFunc(raw, func(tok string) string {
		frag := strings.ToUpper(strings.TrimPrefix(tok, "Int/"))

		at := strings.Index(strings.ToUpper(seq), frag)
		if at < 0 {
			return tok
		}

		return fmt.Sprintf("m%d:%d", at+1, at+len(frag))
	})
}

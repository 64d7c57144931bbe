package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/speclib/annotation"
	"github.com/hupe1980/speclib/attribute"
	"github.com/hupe1980/speclib/index"
	"github.com/hupe1980/speclib/model"
)

// FormatText is the registry name of the native text format.
const FormatText = "text"

// DefaultFormatVersion is written when a library carries no format version
// attribute of its own.
const DefaultFormatVersion = "1.0"

// Well-known header terms shared by the text and JSON dialects.
var (
	TermFormatVersion   = attribute.Term{Accession: "MS:1003186", Name: "library format version"}
	TermLibraryName     = attribute.Term{Accession: "MS:1003188", Name: "library name"}
	TermAttributeSetRef = attribute.Term{Accession: "MS:1003212", Name: "library attribute set name"}
)

const (
	textHeaderOpen    = "<mzSpecLib"
	textSpectrumOpen  = "<Spectrum="
	textClusterOpen   = "<Cluster="
	textAnalyteOpen   = "<Analyte="
	textInterpOpen    = "<Interpretation="
	textMemberOpen    = "<InterpretationMember="
	textPeaksOpen     = "<Peaks>"
	textAttrSetOpen   = "<AttributeSet "
	textSpectrumName  = "MS:1003061|spectrum name="
	textSpectrumPlain = "<Spectrum>"
)

func init() {
	Register(&Format{
		Name:       FormatText,
		Extensions: []string{".mzlb.txt", ".mzspeclib.txt", ".mzlb", ".mzspeclib"},
		Open:       openText,
		Sniff:      sniffText,
	})
}

func sniffText(_ context.Context, r io.Reader) bool {
	br := bufio.NewReader(r)

	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	return strings.HasPrefix(strings.TrimSpace(line), textHeaderOpen)
}

var textScanRules = scanRules{
	IsRecordStart: func(line string) bool {
		return strings.HasPrefix(line, textSpectrumOpen) || line == textSpectrumPlain
	},
	IsClusterStart: func(line string) bool {
		return strings.HasPrefix(line, textClusterOpen)
	},
	ClusterKey: func(line string) (uint64, bool) {
		body, ok := tagBody(line, "Cluster")
		if !ok {
			return 0, false
		}

		key, err := strconv.ParseUint(body, 10, 64)

		return key, err == nil
	},
	Name: func(line string) (string, bool) {
		if rest, ok := strings.CutPrefix(line, textSpectrumName); ok {
			return rest, true
		}

		return "", false
	},
}

// TextLibrary reads the native mzSpecLib text dialect: a library header
// block followed by <Spectrum=K> records, optionally interleaved with
// <Cluster=K> blocks after the spectra.
type TextLibrary struct {
	src    *ByteSource
	sc     *scanner
	idx    index.Index
	header *Header
	count  int
	cursor uint64
}

var (
	_ Library       = (*TextLibrary)(nil)
	_ ClusterReader = (*TextLibrary)(nil)
	_ Indexed       = (*TextLibrary)(nil)
)

func openText(ctx context.Context, src *ByteSource, opts *OpenOptions) (Library, error) {
	lib := &TextLibrary{
		src: src,
		sc:  newScanner(src, textScanRules, opts.Logger),
	}

	if err := lib.readHeader(); err != nil {
		return nil, err
	}

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

// readHeader parses the library-level block: the <mzSpecLib> opening tag,
// plain and grouped attribute lines, and <AttributeSet> declarations. The
// block ends at the first spectrum or cluster tag.
func (t *TextLibrary) readHeader() error {
	r, err := t.src.SectionAt(0)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	h := NewHeader()
	target := h.Attributes

	br := bufio.NewReaderSize(r, scanBufSize)

	sawOpen := false
	lineNo := 0

	for {
		line, rerr := br.ReadString('\n')
		if line != "" {
			lineNo++
			trimmed := strings.TrimRight(line, "\r\n")

			switch {
			case trimmed == "":

			case textScanRules.IsRecordStart(trimmed) || textScanRules.IsClusterStart(trimmed):
				if !sawOpen {
					return fmt.Errorf("%w: %s has no %s header", ErrUnknownFormat, t.src.Name(), textHeaderOpen)
				}

				t.header = h

				return nil

			case strings.HasPrefix(trimmed, textHeaderOpen):
				sawOpen = true

			case strings.HasPrefix(trimmed, textAttrSetOpen):
				set, err := t.openAttributeSet(h, trimmed)
				if err != nil {
					return err
				}

				target = set

			default:
				if err := addAttributeLine(target, trimmed, lineNo, 0); err != nil {
					return err
				}
			}
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			return fmt.Errorf("backend: read header of %s: %w", t.src.Name(), rerr)
		}
	}

	if !sawOpen {
		return fmt.Errorf("%w: %s has no %s header", ErrUnknownFormat, t.src.Name(), textHeaderOpen)
	}

	t.header = h

	return nil
}

// openAttributeSet starts a named attribute set declared by a line like
// "<AttributeSet Spectrum=all>" and returns the manager its attribute
// lines fill.
func (t *TextLibrary) openAttributeSet(h *Header, line string) (*attribute.Manager, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(line, textAttrSetOpen), ">")

	scope, name, ok := strings.Cut(body, "=")
	if !ok {
		return nil, fmt.Errorf("%w: malformed attribute set tag %q", ErrUnknownFormat, line)
	}

	set := attribute.NewSet(name)

	switch scope {
	case "Spectrum":
		h.SpectrumSets = append(h.SpectrumSets, set)
	case "Analyte":
		h.AnalyteSets = append(h.AnalyteSets, set)
	case "Interpretation":
		h.InterpretationSets = append(h.InterpretationSets, set)
	default:
		return nil, fmt.Errorf("%w: unknown attribute set scope %q", ErrUnknownFormat, scope)
	}

	return set.Attributes, nil
}

// Format implements Library.
func (t *TextLibrary) Format() string { return FormatText }

// Header implements Library.
func (t *TextLibrary) Header() *Header { return t.header }

// Index implements Indexed.
func (t *TextLibrary) Index() index.Index { return t.idx }

// Count implements Library.
func (t *TextLibrary) Count() (int, error) { return t.count, nil }

// Spectrum implements Library.
func (t *TextLibrary) Spectrum(ctx context.Context, number uint64) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := t.idx.Get(number)
	if err != nil {
		return nil, err
	}

	return t.spectrumAt(rec)
}

// SpectrumByName implements Library.
func (t *TextLibrary) SpectrumByName(ctx context.Context, name string) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := t.idx.SearchOne(name)
	if err != nil {
		return nil, err
	}

	return t.spectrumAt(rec)
}

// Read implements Library.
func (t *TextLibrary) Read(ctx context.Context) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.cursor >= uint64(t.count) { //nolint:gosec // count is never negative
		return nil, io.EOF
	}

	s, err := t.Spectrum(ctx, t.cursor)
	if err != nil {
		return nil, err
	}

	t.cursor++

	return s, nil
}

func (t *TextLibrary) spectrumAt(rec index.Record) (*model.Spectrum, error) {
	lines, err := t.sc.linesFor(rec.Offset)
	if err != nil {
		return nil, err
	}

	return parseTextSpectrum(t.header, lines, rec.Number)
}

// Cluster implements ClusterReader.
func (t *TextLibrary) Cluster(ctx context.Context, key uint64) (*model.SpectrumCluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := t.idx.GetCluster(key)
	if err != nil {
		return nil, err
	}

	lines, err := t.sc.linesFor(rec.Offset)
	if err != nil {
		return nil, err
	}

	return parseTextCluster(lines)
}

// ClusterKeys implements ClusterReader.
func (t *TextLibrary) ClusterKeys(_ context.Context) ([]uint64, error) {
	recs, err := t.idx.Clusters()
	if err != nil {
		return nil, err
	}

	keys := make([]uint64, len(recs))
	for i, rec := range recs {
		keys[i] = rec.Number
	}

	return keys, nil
}

// ClusterCount implements ClusterReader.
func (t *TextLibrary) ClusterCount() (int, error) {
	return t.idx.ClusterCount()
}

// Close implements Library.
func (t *TextLibrary) Close() error {
	err := t.idx.Close()

	if cerr := t.src.Close(); err == nil {
		err = cerr
	}

	return err
}

// tagBody extracts the value of a "<Name=body>" tag line.
func tagBody(line, name string) (string, bool) {
	rest, ok := strings.CutPrefix(line, "<"+name+"=")
	if !ok {
		return "", false
	}

	body, ok := strings.CutSuffix(rest, ">")

	return body, ok
}

// addAttributeLine parses one "[group]CURIE|name=value" line into target.
// Lines matching no recognized shape abort the enclosing record parse.
func addAttributeLine(target *attribute.Manager, line string, lineNo int, record uint64) error {
	group := ""
	rest := line

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return &ErrMalformedAttributeLine{Line: line, LineNo: lineNo, Record: record}
		}

		group = rest[1:end]
		rest = rest[end+1:]
	}

	key, value, ok := strings.Cut(rest, "=")
	if !ok || key == "" {
		return &ErrMalformedAttributeLine{Line: line, LineNo: lineNo, Record: record}
	}

	term := attribute.ParseTerm(key)
	if group == "" {
		target.Add(term, attribute.ParseValue(value))
	} else {
		target.AddGrouped(term, attribute.ParseValue(value), group)
	}

	return nil
}

// textSection tracks which block of a record the parser is filling.
type textSection int

const (
	sectionSpectrum textSection = iota
	sectionAnalyte
	sectionInterpretation
	sectionMember
	sectionPeaks
)

// parseTextSpectrum converts one record's buffered lines into a Spectrum.
// The first line must be the spectrum tag; number becomes the index
// attribute.
func parseTextSpectrum(h *Header, lines []string, number uint64) (*model.Spectrum, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("backend: empty spectrum record %d", number)
	}

	s := model.NewSpectrum()

	if key, ok := tagBody(lines[0], "Spectrum"); ok {
		if k, err := strconv.ParseUint(key, 10, 64); err == nil {
			s.Key = k
		}
	} else if lines[0] != textSpectrumPlain {
		return nil, &ErrMalformedAttributeLine{Line: lines[0], LineNo: 1, Record: number}
	}

	section := sectionSpectrum
	target := s.Attributes

	var (
		analyte *model.Analyte
		interp  *model.Interpretation
	)

	for lineNo, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, textAnalyteOpen):
			id, ok := tagBody(line, "Analyte")
			if !ok {
				return nil, &ErrMalformedAttributeLine{Line: line, LineNo: lineNo + 2, Record: number}
			}

			analyte = model.NewAnalyte(id)
			s.AddAnalyte(analyte)
			section, target = sectionAnalyte, analyte.Attributes

		case strings.HasPrefix(line, textInterpOpen):
			id, ok := tagBody(line, "Interpretation")
			if !ok {
				return nil, &ErrMalformedAttributeLine{Line: line, LineNo: lineNo + 2, Record: number}
			}

			interp = model.NewInterpretation(id)
			s.AddInterpretation(interp)
			section, target = sectionInterpretation, interp.Attributes

		case strings.HasPrefix(line, textMemberOpen):
			id, ok := tagBody(line, "InterpretationMember")
			if !ok || interp == nil {
				return nil, &ErrMalformedAttributeLine{Line: line, LineNo: lineNo + 2, Record: number}
			}

			member := model.NewInterpretationMember(id)
			interp.AddMember(member)
			section, target = sectionMember, member.Attributes

		case line == textPeaksOpen:
			section = sectionPeaks

		case section == sectionPeaks:
			peak, err := parseTextPeak(line)
			if err != nil {
				return nil, err
			}

			s.Peaks = append(s.Peaks, peak)

		default:
			if err := addAttributeLine(target, line, lineNo+2, number); err != nil {
				return nil, err
			}

			applyAttributeSets(h, section, target)
		}
	}

	s.SetIndex(int64(number)) //nolint:gosec // ordinals stay far below 2^63
	resolveMixtures(s)
	s.BackfillInterpretations()

	return s, nil
}

// applyAttributeSets expands an attribute-set reference the moment it is
// read, so later lines append after the set's attributes like the original
// file would.
func applyAttributeSets(h *Header, section textSection, target *attribute.Manager) {
	vals := target.GetAll(TermAttributeSetRef)
	if len(vals) == 0 {
		return
	}

	if target.Remove(TermAttributeSetRef) == 0 {
		return
	}

	for _, v := range vals {
		var (
			set *attribute.Set
			ok  bool
		)

		switch section {
		case sectionAnalyte:
			set, ok = h.AnalyteSet(v.String())
		case sectionInterpretation, sectionMember:
			set, ok = h.InterpretationSet(v.String())
		default:
			set, ok = h.SpectrumSet(v.String())
		}

		if ok {
			set.Apply(target)
		}
	}
}

// TermAnalyteMixture lists the analytes an interpretation assigns jointly.
var TermAnalyteMixture = attribute.Term{Accession: "MS:1003163", Name: "analyte mixture"}

// resolveMixtures links each interpretation to the analytes its mixture
// attribute names. Runs once per parsed record, before the single
// interpretation backfill.
func resolveMixtures(s *model.Spectrum) {
	for _, in := range s.Interpretations() {
		v, ok := in.Attributes.First(TermAnalyteMixture)
		if !ok {
			continue
		}

		for _, id := range strings.Split(v.String(), ",") {
			id = strings.TrimSpace(id)
			if a, ok := s.GetAnalyte(id); ok {
				in.AddAnalyte(a)
			}
		}
	}
}

// parseTextPeak parses one "mz\tintensity\tannotations[\taggregation]" row.
// A bad annotation column degrades into an Invalid marker rather than
// failing the record; bad numbers fail it.
func parseTextPeak(line string) (model.Peak, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 || len(fields) > 4 {
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

	anns, err := annotation.Parse(fields[2])
	if err != nil {
		anns = []annotation.Annotation{{Ion: annotation.Invalid{Content: fields[2]}}}
	}

	peak.Annotations = anns

	if len(fields) == 4 {
		peak.Aggregation = fields[3]
	}

	return peak, nil
}

// parseTextCluster converts one cluster block's lines into a cluster.
func parseTextCluster(lines []string) (*model.SpectrumCluster, error) {
	if len(lines) == 0 {
		return nil, errors.New("backend: empty cluster record")
	}

	key, ok := tagBody(lines[0], "Cluster")
	if !ok {
		return nil, &ErrMalformedAttributeLine{Line: lines[0], LineNo: 1}
	}

	c := model.NewSpectrumCluster()

	if k, err := strconv.ParseUint(key, 10, 64); err == nil {
		c.SetKey(k)
	}

	for lineNo, line := range lines[1:] {
		if err := addAttributeLine(c.Attributes, line, lineNo+2, c.Key()); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// TextWriter emits the native text dialect.
type TextWriter struct {
	w       *bufio.Writer
	c       io.Closer
	version string
}

var (
	_ Writer        = (*TextWriter)(nil)
	_ ClusterWriter = (*TextWriter)(nil)
)

// NewTextWriter returns a writer emitting to w. When w is an io.Closer it
// is closed by Close.
func NewTextWriter(w io.Writer) *TextWriter {
	tw := &TextWriter{w: bufio.NewWriter(w), version: DefaultFormatVersion}
	if c, ok := w.(io.Closer); ok {
		tw.c = c
	}

	return tw
}

// WriteHeader implements Writer.
func (tw *TextWriter) WriteHeader(h *Header) error {
	if _, err := fmt.Fprintf(tw.w, "%s %s>\n", textHeaderOpen, tw.version); err != nil {
		return err
	}

	attrs := h.Attributes.All()

	if !h.Attributes.Has(TermFormatVersion) {
		if err := tw.writeAttribute(attribute.Attribute{
			Key:   TermFormatVersion,
			Value: attribute.String(tw.version),
		}); err != nil {
			return err
		}
	}

	for _, a := range attrs {
		if err := tw.writeAttribute(a); err != nil {
			return err
		}
	}

	for _, block := range []struct {
		scope string
		sets  []*attribute.Set
	}{
		{"Spectrum", h.SpectrumSets},
		{"Analyte", h.AnalyteSets},
		{"Interpretation", h.InterpretationSets},
	} {
		scope := block.scope

		for _, set := range block.sets {
			if _, err := fmt.Fprintf(tw.w, "<AttributeSet %s=%s>\n", scope, set.Name); err != nil {
				return err
			}

			for _, a := range set.Attributes.All() {
				if err := tw.writeAttribute(a); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (tw *TextWriter) writeAttribute(a attribute.Attribute) error {
	if a.Group != "" {
		if _, err := fmt.Fprintf(tw.w, "[%s]", a.Group); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(tw.w, "%s=%s\n", a.Key, a.Value)

	return err
}

// WriteSpectrum implements Writer. Spectra must be written in library
// order; peaks are emitted in stored order and must already be sorted by
// ascending m/z.
func (tw *TextWriter) WriteSpectrum(s *model.Spectrum) error {
	key := s.Key
	if key == 0 {
		key = uint64(s.Index() + 1) //nolint:gosec // ordinals stay far below 2^63
	}

	if _, err := fmt.Fprintf(tw.w, "<Spectrum=%d>\n", key); err != nil {
		return err
	}

	for _, a := range s.Attributes.All() {
		if a.Key == model.TermSpectrumIndex {
			continue
		}

		if err := tw.writeAttribute(a); err != nil {
			return err
		}
	}

	for _, analyte := range s.Analytes() {
		if _, err := fmt.Fprintf(tw.w, "<Analyte=%s>\n", analyte.ID); err != nil {
			return err
		}

		if err := tw.writeAll(analyte.Attributes); err != nil {
			return err
		}
	}

	for _, in := range s.Interpretations() {
		if _, err := fmt.Fprintf(tw.w, "<Interpretation=%s>\n", in.ID); err != nil {
			return err
		}

		if err := tw.writeInterpretation(s, in); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(tw.w, textPeaksOpen); err != nil {
		return err
	}

	for i := range s.Peaks {
		if err := tw.writePeak(&s.Peaks[i]); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(tw.w)

	return err
}

func (tw *TextWriter) writeInterpretation(s *model.Spectrum, in *model.Interpretation) error {
	// The mixture linkage is implicit when the spectrum has a single
	// analyte; write it out only for real mixtures.
	if s.AnalyteCount() > 1 && in.AnalyteCount() > 0 && !in.Attributes.Has(TermAnalyteMixture) {
		ids := in.AnalyteIDs()
		if err := tw.writeAttribute(attribute.Attribute{
			Key:   TermAnalyteMixture,
			Value: attribute.String(strings.Join(ids, ",")),
		}); err != nil {
			return err
		}
	}

	if err := tw.writeAll(in.Attributes); err != nil {
		return err
	}

	for _, m := range in.Members {
		if _, err := fmt.Fprintf(tw.w, "<InterpretationMember=%s>\n", m.ID); err != nil {
			return err
		}

		if err := tw.writeAll(m.Attributes); err != nil {
			return err
		}
	}

	return nil
}

func (tw *TextWriter) writeAll(m *attribute.Manager) error {
	for _, a := range m.All() {
		if err := tw.writeAttribute(a); err != nil {
			return err
		}
	}

	return nil
}

func (tw *TextWriter) writePeak(p *model.Peak) error {
	mz := strconv.FormatFloat(p.Mz, 'f', -1, 64)
	intensity := strconv.FormatFloat(float64(p.Intensity), 'f', -1, 32)
	anns := annotation.Serialize(p.Annotations)

	if p.Aggregation != "" {
		_, err := fmt.Fprintf(tw.w, "%s\t%s\t%s\t%s\n", mz, intensity, anns, p.Aggregation)

		return err
	}

	_, err := fmt.Fprintf(tw.w, "%s\t%s\t%s\n", mz, intensity, anns)

	return err
}

// WriteCluster implements ClusterWriter.
func (tw *TextWriter) WriteCluster(c *model.SpectrumCluster) error {
	if _, err := fmt.Fprintf(tw.w, "<Cluster=%d>\n", c.Key()); err != nil {
		return err
	}

	for _, a := range c.Attributes.All() {
		if a.Key == model.TermClusterKey {
			continue
		}

		if err := tw.writeAttribute(a); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(tw.w)

	return err
}

// Flush writes any buffered output to the underlying writer without
// closing it.
func (tw *TextWriter) Flush() error {
	return tw.w.Flush()
}

// Close implements Writer.
func (tw *TextWriter) Close() error {
	err := tw.w.Flush()

	if tw.c != nil {
		if cerr := tw.c.Close(); err == nil {
			err = cerr
		}
	}

	return err
}

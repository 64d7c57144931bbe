package backend

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/speclib/annotation"
	"github.com/hupe1980/speclib/attribute"
	"github.com/hupe1980/speclib/codec"
	"github.com/hupe1980/speclib/index"
	"github.com/hupe1980/speclib/model"
)

// FormatJSON is the registry name of the mzSpecLib JSON dialect.
const FormatJSON = "json"

func init() {
	Register(&Format{
		Name:       FormatJSON,
		Extensions: []string{".mzlb.json", ".mzspeclib.json"},
		Open:       openJSON,
		Sniff:      sniffJSON,
	})
}

func sniffJSON(_ context.Context, r io.Reader) bool {
	head, err := io.ReadAll(r)
	if err != nil {
		return false
	}

	text := string(head)

	return strings.HasPrefix(strings.TrimSpace(text), "{") &&
		strings.Contains(text, `"spectra"`) && strings.Contains(text, `"attributes"`)
}

// jsonAttribute is the wire form of one attribute: the split key, the
// value (with the accession pulled aside for term values), and the group.
type jsonAttribute struct {
	Accession      string `json:"accession"`
	Name           string `json:"name"`
	Value          any    `json:"value"`
	ValueAccession string `json:"value_accession,omitempty"`
	Group          any    `json:"cv_param_group,omitempty"`
}

type jsonAnalyte struct {
	ID         string          `json:"id"`
	Attributes []jsonAttribute `json:"attributes"`
}

type jsonInterpretation struct {
	ID         string                 `json:"id"`
	Attributes []jsonAttribute        `json:"attributes"`
	Members    map[string]jsonAnalyte `json:"members,omitempty"`
}

type jsonSpectrum struct {
	Attributes      []jsonAttribute               `json:"attributes"`
	Mzs             []float64                     `json:"mzs"`
	Intensities     []float32                     `json:"intensities"`
	PeakAnnotations []any                         `json:"peak_annotations"`
	Aggregations    []string                      `json:"aggregations,omitempty"`
	Analytes        map[string]jsonAnalyte        `json:"analytes,omitempty"`
	Interpretations map[string]jsonInterpretation `json:"interpretations,omitempty"`
}

type jsonLibrary struct {
	FormatVersion      string                     `json:"format_version,omitempty"`
	Attributes         []jsonAttribute            `json:"attributes"`
	Spectra            []jsonSpectrum             `json:"spectra"`
	SpectrumSets       map[string][]jsonAttribute `json:"spectrum_attribute_sets,omitempty"`
	AnalyteSets        map[string][]jsonAttribute `json:"analyte_attribute_sets,omitempty"`
	InterpretationSets map[string][]jsonAttribute `json:"interpretation_attribute_sets,omitempty"`
}

// JSONLibrary reads the JSON dialect. The whole document is decoded up
// front; the offset of a spectrum is its position in the spectra array.
type JSONLibrary struct {
	src    *ByteSource
	doc    jsonLibrary
	header *Header
	idx    *index.MemoryIndex
	cursor uint64
}

var (
	_ Library = (*JSONLibrary)(nil)
	_ Indexed = (*JSONLibrary)(nil)
)

func openJSON(ctx context.Context, src *ByteSource, _ *OpenOptions) (Library, error) {
	r, err := src.SectionAt(0)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", src.Name(), err)
	}

	lib := &JSONLibrary{src: src, idx: index.NewMemoryIndex()}

	if err := codec.Default.Unmarshal(data, &lib.doc); err != nil {
		return nil, fmt.Errorf("backend: decode %s: %w", src.Name(), err)
	}

	if err := lib.readHeader(); err != nil {
		return nil, err
	}

	if err := lib.createIndex(ctx); err != nil {
		return nil, err
	}

	return lib, nil
}

func (j *JSONLibrary) readHeader() error {
	h := NewHeader()

	if err := fillAttributes(h.Attributes, j.doc.Attributes); err != nil {
		return err
	}

	if !h.Attributes.Has(TermFormatVersion) {
		version := j.doc.FormatVersion
		if version == "" {
			version = DefaultFormatVersion
		}

		h.Attributes.Add(TermFormatVersion, attribute.String(version))
	}

	for name, attrs := range j.doc.SpectrumSets {
		set := attribute.NewSet(name)
		if err := fillAttributes(set.Attributes, attrs); err != nil {
			return err
		}

		h.SpectrumSets = append(h.SpectrumSets, set)
	}

	for name, attrs := range j.doc.AnalyteSets {
		set := attribute.NewSet(name)
		if err := fillAttributes(set.Attributes, attrs); err != nil {
			return err
		}

		h.AnalyteSets = append(h.AnalyteSets, set)
	}

	for name, attrs := range j.doc.InterpretationSets {
		set := attribute.NewSet(name)
		if err := fillAttributes(set.Attributes, attrs); err != nil {
			return err
		}

		h.InterpretationSets = append(h.InterpretationSets, set)
	}

	j.header = h

	return nil
}

func (j *JSONLibrary) createIndex(ctx context.Context) error {
	for i, spec := range j.doc.Spectra {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := ""

		for _, a := range spec.Attributes {
			if a.Accession == model.TermSpectrumName.Accession {
				name = fmt.Sprint(a.Value)

				break
			}
		}

		if name == "" {
			return &ErrIndexBuild{
				Path:   j.src.Name(),
				Number: uint64(i), //nolint:gosec // array position, never negative
				Offset: int64(i),
				Reason: "record has no name",
			}
		}

		if err := j.idx.Add(index.Record{
			Number: uint64(i), //nolint:gosec // array position, never negative
			Offset: int64(i),
			Name:   name,
		}); err != nil {
			return err
		}
	}

	return j.idx.Commit()
}

// Format implements Library.
func (j *JSONLibrary) Format() string { return FormatJSON }

// Header implements Library.
func (j *JSONLibrary) Header() *Header { return j.header }

// Index implements Indexed.
func (j *JSONLibrary) Index() index.Index { return j.idx }

// Count implements Library.
func (j *JSONLibrary) Count() (int, error) { return len(j.doc.Spectra), nil }

// Spectrum implements Library.
func (j *JSONLibrary) Spectrum(_ context.Context, number uint64) (*model.Spectrum, error) {
	rec, err := j.idx.Get(number)
	if err != nil {
		return nil, err
	}

	return j.spectrumAt(rec)
}

// SpectrumByName implements Library.
func (j *JSONLibrary) SpectrumByName(_ context.Context, name string) (*model.Spectrum, error) {
	rec, err := j.idx.SearchOne(name)
	if err != nil {
		return nil, err
	}

	return j.spectrumAt(rec)
}

// Read implements Library.
func (j *JSONLibrary) Read(ctx context.Context) (*model.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if j.cursor >= uint64(len(j.doc.Spectra)) {
		return nil, io.EOF
	}

	s, err := j.Spectrum(ctx, j.cursor)
	if err != nil {
		return nil, err
	}

	j.cursor++

	return s, nil
}

func (j *JSONLibrary) spectrumAt(rec index.Record) (*model.Spectrum, error) {
	data := &j.doc.Spectra[rec.Offset]

	s := model.NewSpectrum()
	s.Key = rec.Number + 1

	if err := fillAttributes(s.Attributes, data.Attributes); err != nil {
		return nil, err
	}

	for id, a := range data.Analytes {
		analyte := model.NewAnalyte(id)
		if err := fillAttributes(analyte.Attributes, a.Attributes); err != nil {
			return nil, err
		}

		s.AddAnalyte(analyte)
	}

	for id, in := range data.Interpretations {
		interp := model.NewInterpretation(id)
		if err := fillAttributes(interp.Attributes, in.Attributes); err != nil {
			return nil, err
		}

		for mid, m := range in.Members {
			member := model.NewInterpretationMember(mid)
			if err := fillAttributes(member.Attributes, m.Attributes); err != nil {
				return nil, err
			}

			interp.AddMember(member)
		}

		s.AddInterpretation(interp)
	}

	if s.InterpretationCount() == 0 && s.AnalyteCount() > 0 {
		s.AddInterpretation(model.NewInterpretation("1"))
	}

	if len(data.Mzs) != len(data.Intensities) {
		return nil, fmt.Errorf("backend: spectrum %d of %s: %d m/z values but %d intensities",
			rec.Number, j.src.Name(), len(data.Mzs), len(data.Intensities))
	}

	for i, mz := range data.Mzs {
		peak := model.Peak{Mz: mz, Intensity: data.Intensities[i]}

		if i < len(data.PeakAnnotations) {
			anns, err := decodePeakAnnotations(data.PeakAnnotations[i])
			if err != nil {
				return nil, fmt.Errorf("backend: spectrum %d of %s: %w", rec.Number, j.src.Name(), err)
			}

			peak.Annotations = anns
		}

		if i < len(data.Aggregations) {
			peak.Aggregation = data.Aggregations[i]
		}

		s.Peaks = append(s.Peaks, peak)
	}

	s.SetIndex(int64(rec.Number)) //nolint:gosec // ordinals stay far below 2^63
	resolveMixtures(s)
	s.BackfillInterpretations()

	return s, nil
}

// Close implements Library.
func (j *JSONLibrary) Close() error {
	err := j.idx.Close()

	if cerr := j.src.Close(); err == nil {
		err = cerr
	}

	return err
}

// fillAttributes converts wire attributes into a manager, preserving
// their order and groups.
func fillAttributes(m *attribute.Manager, attrs []jsonAttribute) error {
	for _, a := range attrs {
		key := attribute.Term{Accession: a.Accession, Name: a.Name}

		var value attribute.Value

		switch {
		case a.ValueAccession != "":
			value = attribute.TermValue(attribute.Term{Accession: a.ValueAccession, Name: fmt.Sprint(a.Value)})
		default:
			value = jsonValue(a.Value)
		}

		group := groupString(a.Group)
		if group == "" {
			m.Add(key, value)
		} else {
			m.AddGrouped(key, value, group)
		}
	}

	return nil
}

func jsonValue(v any) attribute.Value {
	switch t := v.(type) {
	case string:
		return attribute.ParseValue(t)
	case float64:
		if t == float64(int64(t)) {
			return attribute.Int(int64(t))
		}

		return attribute.Float(t)
	case bool:
		return attribute.Bool(t)
	case nil:
		return attribute.String("")
	default:
		return attribute.String(fmt.Sprint(t))
	}
}

// groupString normalizes the cv_param_group field, which other writers
// emit as either a JSON string or a number.
func groupString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.Itoa(int(t))
	default:
		return fmt.Sprint(t)
	}
}

// decodePeakAnnotations accepts the wire forms of one peak's annotation
// list: the mzPAF string, a list of structured objects, or a single
// structured object. Anything else is an error.
func decodePeakAnnotations(v any) ([]annotation.Annotation, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		anns, err := annotation.Parse(t)
		if err != nil {
			return []annotation.Annotation{{Ion: annotation.Invalid{Content: t}}}, nil
		}

		return anns, nil
	case []any:
		anns := make([]annotation.Annotation, 0, len(t))

		for _, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("peak annotation element has type %T", e)
			}

			a, err := decodeStructuredAnnotation(m)
			if err != nil {
				return nil, err
			}

			anns = append(anns, a)
		}

		return anns, nil
	case map[string]any:
		a, err := decodeStructuredAnnotation(t)
		if err != nil {
			return nil, err
		}

		return []annotation.Annotation{a}, nil
	default:
		return nil, fmt.Errorf("peak annotation has type %T", v)
	}
}

// decodeStructuredAnnotation rebuilds one annotation from its object form.
// The ion variant is discriminated by ion_type; the envelope fields share
// their names across variants.
func decodeStructuredAnnotation(m map[string]any) (annotation.Annotation, error) {
	var a annotation.Annotation

	ionType, _ := m["ion_type"].(string)

	switch ionType {
	case "peptide":
		a.Ion = annotation.PeptideFragment{Series: mapString(m, "series"), Position: mapInt(m, "position")}
	case "internal":
		a.Ion = annotation.Internal{Start: mapInt(m, "start_position"), End: mapInt(m, "end_position")}
	case "precursor":
		a.Ion = annotation.Precursor{}
	case "immonium":
		a.Ion = annotation.Immonium{AminoAcid: mapString(m, "amino_acid"), Modification: mapString(m, "modification")}
	case "reporter":
		a.Ion = annotation.Reporter{Label: mapString(m, "reporter_label")}
	case "formula":
		a.Ion = annotation.Formula{Formula: mapString(m, "formula")}
	case "smiles":
		a.Ion = annotation.SMILES{SMILES: mapString(m, "smiles")}
	case "unannotated", "unknown":
		a.Ion = annotation.Unknown{Label: mapString(m, "label")}
	case "external":
		a.Ion = annotation.External{Label: mapString(m, "label")}
	default:
		return a, fmt.Errorf("peak annotation has unknown ion type %q", ionType)
	}

	a.NeutralLosses = mapStrings(m, "neutral_losses")
	a.Adducts = mapStrings(m, "adducts")
	a.Isotope = mapInt(m, "isotope")
	a.Charge = mapInt(m, "charge")
	a.AnalyteRef = mapString(m, "analyte_reference")

	if me, ok := m["mass_error"].(map[string]any); ok {
		merr := &annotation.MassError{Unit: "Da"}

		if v, ok := me["value"].(float64); ok {
			merr.Value = v
		}

		if u, ok := me["unit"].(string); ok && u != "" {
			merr.Unit = u
		}

		a.MassError = merr
	}

	if c, ok := m["confidence"].(float64); ok {
		a.Confidence = &c
	}

	if aux, ok := m["is_auxiliary"].(bool); ok {
		a.Auxiliary = aux
	}

	return a, nil
}

func mapString(m map[string]any, key string) string {
	switch t := m[key].(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return ""
	}
}

func mapInt(m map[string]any, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}

	return 0
}

func mapStrings(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	out := make([]string, 0, len(raw))

	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

// JSONWriter emits the JSON dialect. The document is assembled in memory
// and written once on Close.
type JSONWriter struct {
	w   io.Writer
	c   io.Closer
	doc jsonLibrary
}

var _ Writer = (*JSONWriter)(nil)

// NewJSONWriter returns a writer emitting to w. When w is an io.Closer it
// is closed by Close.
func NewJSONWriter(w io.Writer) *JSONWriter {
	jw := &JSONWriter{w: w}
	jw.doc.FormatVersion = DefaultFormatVersion
	jw.doc.Spectra = []jsonSpectrum{}

	if c, ok := w.(io.Closer); ok {
		jw.c = c
	}

	return jw
}

// WriteHeader implements Writer.
func (jw *JSONWriter) WriteHeader(h *Header) error {
	jw.doc.Attributes = formatAttributes(h.Attributes)

	if len(h.SpectrumSets) > 0 {
		jw.doc.SpectrumSets = make(map[string][]jsonAttribute, len(h.SpectrumSets))
		for _, set := range h.SpectrumSets {
			jw.doc.SpectrumSets[set.Name] = formatAttributes(set.Attributes)
		}
	}

	if len(h.AnalyteSets) > 0 {
		jw.doc.AnalyteSets = make(map[string][]jsonAttribute, len(h.AnalyteSets))
		for _, set := range h.AnalyteSets {
			jw.doc.AnalyteSets[set.Name] = formatAttributes(set.Attributes)
		}
	}

	if len(h.InterpretationSets) > 0 {
		jw.doc.InterpretationSets = make(map[string][]jsonAttribute, len(h.InterpretationSets))
		for _, set := range h.InterpretationSets {
			jw.doc.InterpretationSets[set.Name] = formatAttributes(set.Attributes)
		}
	}

	if v, ok := h.Attributes.First(TermFormatVersion); ok {
		jw.doc.FormatVersion = v.String()
	}

	return nil
}

// WriteSpectrum implements Writer.
func (jw *JSONWriter) WriteSpectrum(s *model.Spectrum) error {
	spec := jsonSpectrum{
		Attributes:      formatAttributesExcept(s.Attributes, model.TermSpectrumIndex),
		Mzs:             make([]float64, 0, len(s.Peaks)),
		Intensities:     make([]float32, 0, len(s.Peaks)),
		PeakAnnotations: make([]any, 0, len(s.Peaks)),
	}

	anyAggregation := false

	for i := range s.Peaks {
		p := &s.Peaks[i]
		spec.Mzs = append(spec.Mzs, p.Mz)
		spec.Intensities = append(spec.Intensities, p.Intensity)
		spec.PeakAnnotations = append(spec.PeakAnnotations, annotation.Serialize(p.Annotations))
		spec.Aggregations = append(spec.Aggregations, p.Aggregation)

		if p.Aggregation != "" {
			anyAggregation = true
		}
	}

	if !anyAggregation {
		spec.Aggregations = nil
	}

	if n := s.AnalyteCount(); n > 0 {
		spec.Analytes = make(map[string]jsonAnalyte, n)
		for _, a := range s.Analytes() {
			spec.Analytes[a.ID] = jsonAnalyte{ID: a.ID, Attributes: formatAttributes(a.Attributes)}
		}
	}

	if n := s.InterpretationCount(); n > 0 {
		spec.Interpretations = make(map[string]jsonInterpretation, n)
		for _, in := range s.Interpretations() {
			interp := jsonInterpretation{ID: in.ID, Attributes: formatAttributes(in.Attributes)}

			if len(in.Members) > 0 {
				interp.Members = make(map[string]jsonAnalyte, len(in.Members))
				for _, m := range in.Members {
					interp.Members[m.ID] = jsonAnalyte{ID: m.ID, Attributes: formatAttributes(m.Attributes)}
				}
			}

			spec.Interpretations[in.ID] = interp
		}
	}

	jw.doc.Spectra = append(jw.doc.Spectra, spec)

	return nil
}

func formatAttributes(m *attribute.Manager) []jsonAttribute {
	return formatAttributesExcept(m, attribute.Term{})
}

func formatAttributesExcept(m *attribute.Manager, skip attribute.Term) []jsonAttribute {
	attrs := m.All()
	out := make([]jsonAttribute, 0, len(attrs))

	for _, a := range attrs {
		if !skip.IsZero() && a.Key == skip {
			continue
		}

		ja := jsonAttribute{Accession: a.Key.Accession, Name: a.Key.Name}

		if a.Group != "" {
			ja.Group = a.Group
		}

		switch a.Value.Kind {
		case attribute.KindTerm:
			term, _ := a.Value.AsTerm()
			ja.ValueAccession = term.Accession
			ja.Value = term.Name
		case attribute.KindInt:
			ja.Value = a.Value.I64
		case attribute.KindFloat:
			ja.Value = a.Value.F64
		case attribute.KindBool:
			ja.Value = a.Value.B
		default:
			ja.Value = a.Value.String()
		}

		out = append(out, ja)
	}

	return out
}

// Close implements Writer.
func (jw *JSONWriter) Close() error {
	data, err := codec.Default.Marshal(&jw.doc)
	if err != nil {
		return err
	}

	if _, err := jw.w.Write(data); err != nil {
		return err
	}

	if jw.c != nil {
		return jw.c.Close()
	}

	return nil
}
